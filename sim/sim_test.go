package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"

	"github.com/statespace/linkalman/noise"
)

func TestNewSystem(t *testing.T) {
	assert := assert.New(t)

	f := mat.NewDense(2, 2, []float64{1, 0.1, 0, 1})
	h := mat.NewDense(1, 2, []float64{1, 0})
	x0 := mat.NewVecDense(2, []float64{0, 1})

	s, err := NewSystem(f, h, x0, nil, nil)
	assert.NotNil(s)
	assert.NoError(err)

	// F not square
	_, err = NewSystem(mat.NewDense(2, 1, nil), h, x0, nil, nil)
	assert.Error(err)

	// H column mismatch
	_, err = NewSystem(f, mat.NewDense(1, 3, nil), x0, nil, nil)
	assert.Error(err)

	// x0 length mismatch
	_, err = NewSystem(f, h, mat.NewVecDense(3, nil), nil, nil)
	assert.Error(err)

	// noise dimension mismatch
	wd, _ := noise.NewZero(3)
	_, err = NewSystem(f, h, x0, wd, nil)
	assert.Error(err)

	wn, _ := noise.NewZero(3)
	_, err = NewSystem(f, h, x0, nil, wn)
	assert.Error(err)
}

func TestStepNoiseless(t *testing.T) {
	assert := assert.New(t)

	// noiseless constant velocity: position advances by 0.1 per step
	f := mat.NewDense(2, 2, []float64{1, 0.1, 0, 1})
	h := mat.NewDense(1, 2, []float64{1, 0})
	x0 := mat.NewVecDense(2, []float64{0, 1})

	s, err := NewSystem(f, h, x0, nil, nil)
	assert.NoError(err)

	for i := 1; i <= 10; i++ {
		state, z := s.Step()
		assert.InDelta(0.1*float64(i), state.AtVec(0), 1e-12)
		assert.InDelta(1.0, state.AtVec(1), 1e-12)
		assert.InDelta(0.1*float64(i), z.AtVec(0), 1e-12)
	}

	// State returns a copy
	x := s.State().(*mat.VecDense)
	x.SetVec(0, -100)
	assert.InDelta(1.0, s.State().AtVec(0), 1e-12)
}

func TestStepNoisy(t *testing.T) {
	assert := assert.New(t)

	f := mat.NewDense(1, 1, []float64{1})
	h := mat.NewDense(1, 1, []float64{1})
	x0 := mat.NewVecDense(1, nil)

	wn, err := noise.NewGaussianSeeded([]float64{0}, mat.NewSymDense(1, []float64{1.0}), 11)
	assert.NoError(err)

	s, err := NewSystem(f, h, x0, nil, wn)
	assert.NoError(err)

	// with unit measurement noise on a frozen state, measurements deviate
	diff := 0.0
	for i := 0; i < 100; i++ {
		state, z := s.Step()
		assert.Equal(0.0, state.AtVec(0))
		diff += math.Abs(z.AtVec(0))
	}
	assert.Greater(diff, 0.0)
}

func TestContinuousToDiscrete(t *testing.T) {
	assert := assert.New(t)

	// constant velocity in continuous time: dx/dt = v
	a := mat.NewDense(2, 2, []float64{0, 1, 0, 0})
	c := mat.NewDense(1, 2, []float64{1, 0})

	ct, err := NewContinuous(a, c)
	assert.NoError(err)

	_, err = NewContinuous(mat.NewDense(2, 1, nil), c)
	assert.Error(err)
	_, err = NewContinuous(a, mat.NewDense(1, 3, nil))
	assert.Error(err)

	f, h, err := ct.ToDiscrete(0.1)
	assert.NoError(err)

	// exp(A*Ts) of the nilpotent CV system is exactly I + A*Ts
	want := mat.NewDense(2, 2, []float64{1, 0.1, 0, 1})
	assert.True(mat.EqualApprox(want, f, 1e-12))
	assert.True(mat.EqualApprox(c, h, 0))

	// Euler agrees for this system
	fe, _, err := ct.ToDiscreteEuler(0.1)
	assert.NoError(err)
	assert.True(mat.EqualApprox(f, fe, 1e-12))

	_, _, err = ct.ToDiscrete(0)
	assert.Error(err)
	_, _, err = ct.ToDiscreteEuler(-1)
	assert.Error(err)
}
