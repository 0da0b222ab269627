// Package sim simulates linear discrete-time systems to feed the filter
// examples and tests with ground truth and noisy measurements.
package sim

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	filter "github.com/statespace/linkalman"
)

// System is a linear discrete-time truth model
//
//	x[k+1] = F*x[k] + w
//	z[k]   = H*x[k] + v
//
// where w and v are drawn from the configured process and measurement noise
// sources. It owns the true state and advances it step by step.
type System struct {
	// f is the state transition matrix (n x n)
	f *mat.Dense
	// h is the observation matrix (m x n)
	h *mat.Dense
	// wd is process noise, wn measurement noise
	wd filter.Noise
	wn filter.Noise
	// x is the true system state
	x *mat.VecDense
}

// NewSystem creates a truth simulator with dynamics f, observation h,
// initial true state x0 and the given noise sources. A nil noise source
// means none is added. It returns error on inconsistent dimensions.
func NewSystem(f, h mat.Matrix, x0 mat.Vector, wd, wn filter.Noise) (*System, error) {
	fr, fc := f.Dims()
	if fr != fc {
		return nil, fmt.Errorf("invalid state matrix dimensions: [%d x %d]", fr, fc)
	}

	hr, hc := h.Dims()
	if hc != fc {
		return nil, fmt.Errorf("invalid observation matrix dimensions: [%d x %d]", hr, hc)
	}

	if x0.Len() != fc {
		return nil, fmt.Errorf("invalid initial state length: %d", x0.Len())
	}

	if wd != nil && wd.Cov().Symmetric() != fc {
		return nil, fmt.Errorf("invalid process noise dimension: %d", wd.Cov().Symmetric())
	}
	if wn != nil && wn.Cov().Symmetric() != hr {
		return nil, fmt.Errorf("invalid measurement noise dimension: %d", wn.Cov().Symmetric())
	}

	x := &mat.VecDense{}
	x.CloneFromVec(x0)

	return &System{
		f:  mat.DenseCopyOf(f),
		h:  mat.DenseCopyOf(h),
		wd: wd,
		wn: wn,
		x:  x,
	}, nil
}

// Step advances the true state one time step and returns the new true state
// together with a noisy measurement of it. Both returned vectors are copies.
func (s *System) Step() (state, measurement mat.Vector) {
	next := &mat.VecDense{}
	next.MulVec(s.f, s.x)

	if s.wd != nil {
		next.AddVec(next, s.wd.Sample())
	}
	s.x.CopyVec(next)

	z := &mat.VecDense{}
	z.MulVec(s.h, s.x)
	if s.wn != nil {
		z.AddVec(z, s.wn.Sample())
	}

	out := &mat.VecDense{}
	out.CloneFromVec(s.x)

	return out, z
}

// State returns a copy of the current true state.
func (s *System) State() mat.Vector {
	x := &mat.VecDense{}
	x.CloneFromVec(s.x)

	return x
}
