package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"

	filter "github.com/statespace/linkalman"
)

func TestNewConfig(t *testing.T) {
	assert := assert.New(t)

	f := mat.NewDense(2, 2, []float64{1, 0.1, 0, 1})
	q := mat.NewDense(2, 2, []float64{0.01, 0, 0, 0.01})
	h := mat.NewDense(1, 2, []float64{1, 0})

	cfg, err := NewConfig(f, q, h)
	assert.NotNil(cfg)
	assert.NoError(err)

	n, m := cfg.Dims()
	assert.Equal(2, n)
	assert.Equal(1, m)

	var dimErr *filter.DimensionError
	for _, test := range []struct {
		name    string
		f, q, h mat.Matrix
	}{
		{"F not square", mat.NewDense(2, 3, nil), q, h},
		{"F empty", &mat.Dense{}, q, h},
		{"Q wrong size", f, mat.NewDense(3, 3, nil), h},
		{"Q not square", f, mat.NewDense(2, 3, nil), h},
		{"H wrong columns", f, q, mat.NewDense(1, 3, nil)},
	} {
		cfg, err := NewConfig(test.f, test.q, test.h)
		assert.Nil(cfg, test.name)
		assert.True(errors.As(err, &dimErr), test.name)
	}
}

func TestConfigCopies(t *testing.T) {
	assert := assert.New(t)

	f := mat.NewDense(1, 1, []float64{1})
	q := mat.NewDense(1, 1, []float64{0.1})
	h := mat.NewDense(1, 1, []float64{1})

	cfg, err := NewConfig(f, q, h)
	assert.NoError(err)

	// mutating the caller's matrices must not reach the config
	f.Set(0, 0, 99)
	q.Set(0, 0, 99)
	h.Set(0, 0, 99)

	assert.Equal(1.0, cfg.F().At(0, 0))
	assert.Equal(0.1, cfg.Q().At(0, 0))
	assert.Equal(1.0, cfg.H().At(0, 0))
}

func TestCheckState(t *testing.T) {
	assert := assert.New(t)

	cfg, err := NewConfig(
		mat.NewDense(2, 2, []float64{1, 0, 0, 1}),
		mat.NewDense(2, 2, nil),
		mat.NewDense(1, 2, []float64{1, 0}),
	)
	assert.NoError(err)

	assert.NoError(cfg.CheckState(mat.NewVecDense(2, nil), mat.NewSymDense(2, nil)))

	var dimErr *filter.DimensionError
	assert.True(errors.As(cfg.CheckState(mat.NewVecDense(3, nil), mat.NewSymDense(2, nil)), &dimErr))
	assert.True(errors.As(cfg.CheckState(mat.NewVecDense(2, nil), mat.NewSymDense(3, nil)), &dimErr))
}

func TestCheckMeasurement(t *testing.T) {
	assert := assert.New(t)

	cfg, err := NewConfig(
		mat.NewDense(2, 2, []float64{1, 0, 0, 1}),
		mat.NewDense(2, 2, nil),
		mat.NewDense(1, 2, []float64{1, 0}),
	)
	assert.NoError(err)

	assert.NoError(cfg.CheckMeasurement(mat.NewVecDense(1, nil), mat.NewSymDense(1, nil)))

	var dimErr *filter.DimensionError
	assert.True(errors.As(cfg.CheckMeasurement(mat.NewVecDense(2, nil), mat.NewSymDense(1, nil)), &dimErr))
	assert.True(errors.As(cfg.CheckMeasurement(mat.NewVecDense(1, nil), mat.NewSymDense(2, nil)), &dimErr))

	// the error message names the offending matrix
	err = cfg.CheckMeasurement(mat.NewVecDense(2, nil), mat.NewSymDense(1, nil))
	assert.Contains(err.Error(), "z")
}
