package sim

import (
	"fmt"

	"github.com/milosgajdos/matrix"
	"gonum.org/v1/gonum/mat"
)

// Continuous is a linear continuous-time model
//
//	dx/dt = A*x
//	y     = C*x
//
// used to derive the discrete transition matrix fed to the filter.
type Continuous struct {
	// A is the continuous-time system matrix
	A *mat.Dense
	// C is the output matrix
	C *mat.Dense
}

// NewContinuous creates a continuous-time model from system matrix a and
// output matrix c. It returns error if a is not square or c's column count
// does not match a.
func NewContinuous(a, c mat.Matrix) (*Continuous, error) {
	ar, ac := a.Dims()
	if ar != ac {
		return nil, fmt.Errorf("invalid system matrix dimensions: [%d x %d]", ar, ac)
	}

	_, cc := c.Dims()
	if cc != ac {
		return nil, fmt.Errorf("invalid output matrix dimensions: [%d x %d]", cc, ac)
	}

	return &Continuous{
		A: mat.DenseCopyOf(a),
		C: mat.DenseCopyOf(c),
	}, nil
}

// ToDiscrete converts the model to a discrete-time transition matrix using
// the exact matrix exponential
//
//	F = exp(A*Ts)
//
// sampled at period ts. The output matrix is unchanged by discretization.
// See Discrete-Time Control Systems by Katsuhiko Ogata.
func (ct *Continuous) ToDiscrete(ts float64) (f, h *mat.Dense, err error) {
	if ts <= 0 {
		return nil, nil, fmt.Errorf("invalid sampling period: %f", ts)
	}

	f = &mat.Dense{}
	f.Scale(ts, ct.A)
	f.Exp(f)

	return f, mat.DenseCopyOf(ct.C), nil
}

// ToDiscreteEuler converts the model to a discrete-time transition matrix
// using the first-order Euler approximation
//
//	F = I + A*Ts
//
// which is valid for small sampling periods.
func (ct *Continuous) ToDiscreteEuler(ts float64) (f, h *mat.Dense, err error) {
	if ts <= 0 {
		return nil, nil, fmt.Errorf("invalid sampling period: %f", ts)
	}

	n, _ := ct.A.Dims()
	eye, err := matrix.NewDenseValIdentity(n, 1.0)
	if err != nil {
		return nil, nil, err
	}

	f = &mat.Dense{}
	f.Scale(ts, ct.A)
	f.Add(f, eye)

	return f, mat.DenseCopyOf(ct.C), nil
}
