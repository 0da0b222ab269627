package filter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	filter "github.com/statespace/linkalman"
	"github.com/statespace/linkalman/compiled"
	"github.com/statespace/linkalman/generic"
	"github.com/statespace/linkalman/matrix"
	"github.com/statespace/linkalman/noise"
	"github.com/statespace/linkalman/prealloc"
)

// 2-D constant-velocity model: position is observed, velocity is hidden.
var (
	cvF = mat.NewDense(2, 2, []float64{
		1.0, 0.1,
		0.0, 1.0,
	})
	cvQ = mat.NewDense(2, 2, []float64{
		0.001, 0.0,
		0.0, 0.001,
	})
	cvH = mat.NewDense(1, 2, []float64{1.0, 0.0})

	cvX0 = mat.NewVecDense(2, []float64{0.0, 1.0})
	cvP0 = mat.NewSymDense(2, []float64{0.5, 0.0, 0.0, 0.5})

	cvR = mat.NewSymDense(1, []float64{0.25})
)

func strategies(t *testing.T) map[string]filter.Filter {
	t.Helper()

	fs := map[string]filter.Filter{
		"generic":  generic.New(),
		"prealloc": prealloc.New(),
		"compiled": compiled.New(),
	}
	for name, f := range fs {
		if err := f.Configure(cvF, cvQ, cvH); err != nil {
			t.Fatalf("%s: configure failed: %v", name, err)
		}
		if err := f.SetState(cvX0, cvP0); err != nil {
			t.Fatalf("%s: set state failed: %v", name, err)
		}
	}

	return fs
}

// measurements draws a reproducible sequence of n noisy position readings.
func measurements(t *testing.T, n int) []*mat.VecDense {
	t.Helper()

	samples, err := noise.SamplesWithCov(cvR, rand.New(rand.NewSource(42)), n)
	if err != nil {
		t.Fatalf("failed to draw measurement noise: %v", err)
	}

	zs := make([]*mat.VecDense, n)
	pos, vel := 0.0, 1.0
	for i := range zs {
		pos += 0.1 * vel
		zs[i] = mat.NewVecDense(1, []float64{pos + samples.At(0, i)})
	}

	return zs
}

// TestCrossStrategyEquivalence is the core substitution property: all three
// strategies given identical inputs and call sequences must agree on x and P
// after every single call.
func TestCrossStrategyEquivalence(t *testing.T) {
	assert := assert.New(t)

	fs := strategies(t)
	zs := measurements(t, 50)

	checkAgree := func(step string) {
		ref, err := fs["generic"].Estimate()
		assert.NoError(err, step)

		for _, name := range []string{"prealloc", "compiled"} {
			est, err := fs[name].Estimate()
			assert.NoError(err, "%s: %s", name, step)
			assert.True(mat.EqualApprox(ref.Val(), est.Val(), 1e-9),
				"%s: state diverged at %s", name, step)
			assert.Less(matrix.MaxAbsDiff(ref.Cov(), est.Cov()), 1e-9,
				"%s: covariance diverged at %s", name, step)
		}
	}

	for i, z := range zs {
		for _, f := range fs {
			assert.NoError(f.Predict())
		}
		checkAgree("predict")

		for _, f := range fs {
			assert.NoError(f.Update(z, cvR))
		}
		checkAgree("update")

		// occasionally predict twice in a row: call order is free-form
		if i%7 == 0 {
			for _, f := range fs {
				assert.NoError(f.Predict())
			}
			checkAgree("second predict")
		}
	}
}

// TestUpdateIdempotent re-seeds the pre-update state and replays the same
// measurement: both runs must produce identical results.
func TestUpdateIdempotent(t *testing.T) {
	assert := assert.New(t)

	for name, f := range strategies(t) {
		assert.NoError(f.Predict(), name)

		before, err := f.Estimate()
		assert.NoError(err, name)

		z := mat.NewVecDense(1, []float64{0.3})
		assert.NoError(f.Update(z, cvR), name)
		first, err := f.Estimate()
		assert.NoError(err, name)

		assert.NoError(f.SetState(before.Val(), before.Cov()), name)
		assert.NoError(f.Update(z, cvR), name)
		second, err := f.Estimate()
		assert.NoError(err, name)

		assert.True(mat.EqualApprox(first.Val(), second.Val(), 1e-12), name)
		assert.True(mat.EqualApprox(first.Cov(), second.Cov(), 1e-12), name)
	}
}

// TestGainConverges sanity-checks that every strategy's gain settles as the
// covariance reaches steady state.
func TestGainConverges(t *testing.T) {
	assert := assert.New(t)

	type gainer interface {
		Gain() mat.Matrix
	}

	fs := strategies(t)
	zs := measurements(t, 100)

	for _, z := range zs {
		for _, f := range fs {
			assert.NoError(f.Predict())
			assert.NoError(f.Update(z, cvR))
		}
	}

	ref := fs["generic"].(gainer).Gain()
	assert.NotNil(ref)
	for _, name := range []string{"prealloc", "compiled"} {
		g := fs[name].(gainer).Gain()
		assert.NotNil(g, name)
		assert.True(mat.EqualApprox(ref, g, 1e-9), name)
	}
}
