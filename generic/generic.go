// Package generic implements the Kalman filter with freshly allocated
// storage for every algebraic step. It is the reference strategy: each
// intermediate term lives in its own matrix, so the code reads exactly like
// the filter equations.
package generic

import (
	"gonum.org/v1/gonum/mat"

	filter "github.com/statespace/linkalman"
	"github.com/statespace/linkalman/estimate"
	"github.com/statespace/linkalman/matrix"
	"github.com/statespace/linkalman/model"
)

// Filter is the allocating Kalman filter strategy.
type Filter struct {
	// cfg is the fixed system model
	cfg *model.Config
	// x is the state mean, p the state covariance
	x *mat.VecDense
	p *mat.Dense
	// k is the Kalman gain of the last Update
	k *mat.Dense
}

// New returns an unconfigured filter.
func New() *Filter {
	return &Filter{}
}

// NewConfigured returns a filter already configured with the model (f, q, h).
// It returns error if the model dimensions are inconsistent.
func NewConfigured(f, q, h mat.Matrix) (*Filter, error) {
	kf := New()
	if err := kf.Configure(f, q, h); err != nil {
		return nil, err
	}

	return kf, nil
}

// Configure binds the model matrices. Calling Configure on an already
// configured filter installs the new model and discards the current state
// estimate, so SetState must be called again before Predict or Update.
func (kf *Filter) Configure(f, q, h mat.Matrix) error {
	cfg, err := model.NewConfig(f, q, h)
	if err != nil {
		return err
	}

	kf.cfg = cfg
	kf.x = nil
	kf.p = nil
	kf.k = nil

	return nil
}

// SetState installs the initial state mean and covariance by value.
func (kf *Filter) SetState(x mat.Vector, p mat.Symmetric) error {
	if kf.cfg == nil {
		return filter.ErrNotConfigured
	}
	if err := kf.cfg.CheckState(x, p); err != nil {
		return err
	}

	xv := &mat.VecDense{}
	xv.CloneFromVec(x)

	kf.x = xv
	kf.p = matrix.SymToDense(p)

	return nil
}

// Predict advances the estimate one time step:
//
//	x <- F*x
//	P <- F*P*F' + Q
func (kf *Filter) Predict() error {
	if err := kf.ready(); err != nil {
		return err
	}

	x := new(mat.VecDense)
	x.MulVec(kf.cfg.F(), kf.x)

	fp := new(mat.Dense)
	fp.Mul(kf.cfg.F(), kf.p)
	p := new(mat.Dense)
	p.Mul(fp, kf.cfg.F().T())
	p.Add(p, kf.cfg.Q())

	kf.x = x
	kf.p = p

	return nil
}

// Update corrects the estimate with measurement z and measurement noise
// covariance r. It returns filter.SingularMatrixError if the innovation
// covariance cannot be inverted; x and P are then left untouched.
func (kf *Filter) Update(z mat.Vector, r mat.Symmetric) error {
	if err := kf.ready(); err != nil {
		return err
	}
	if err := kf.cfg.CheckMeasurement(z, r); err != nil {
		return err
	}

	// y = z - H*x
	hx := new(mat.VecDense)
	hx.MulVec(kf.cfg.H(), kf.x)
	y := new(mat.VecDense)
	y.SubVec(z, hx)

	// P*H'
	pht := new(mat.Dense)
	pht.Mul(kf.p, kf.cfg.H().T())

	// S = H*(P*H') + R
	s := new(mat.Dense)
	s.Mul(kf.cfg.H(), pht)
	s.Add(s, r)

	sInv := new(mat.Dense)
	if err := sInv.Inverse(s); err != nil {
		return &filter.SingularMatrixError{Err: err}
	}

	// K = P*H'*inv(S)
	k := new(mat.Dense)
	k.Mul(pht, sInv)

	// x = x + K*y
	ky := new(mat.VecDense)
	ky.MulVec(k, y)
	x := new(mat.VecDense)
	x.AddVec(kf.x, ky)

	// P = P - K*(H*P)
	hp := new(mat.Dense)
	hp.Mul(kf.cfg.H(), kf.p)
	khp := new(mat.Dense)
	khp.Mul(k, hp)
	p := new(mat.Dense)
	p.Sub(kf.p, khp)

	kf.x = x
	kf.p = p
	kf.k = k

	return nil
}

// State returns a copy of the current state mean.
func (kf *Filter) State() (mat.Vector, error) {
	if err := kf.ready(); err != nil {
		return nil, err
	}

	x := &mat.VecDense{}
	x.CloneFromVec(kf.x)

	return x, nil
}

// Covariance returns a copy of the current state covariance.
func (kf *Filter) Covariance() (mat.Symmetric, error) {
	if err := kf.ready(); err != nil {
		return nil, err
	}

	return matrix.ToSym(kf.p), nil
}

// Estimate returns the current (x, P) snapshot.
func (kf *Filter) Estimate() (filter.Estimate, error) {
	if err := kf.ready(); err != nil {
		return nil, err
	}

	return estimate.NewBase(kf.x, matrix.ToSym(kf.p))
}

// Gain returns a copy of the Kalman gain computed by the last successful
// Update, or nil if Update has not run yet.
func (kf *Filter) Gain() mat.Matrix {
	if kf.k == nil {
		return nil
	}

	k := &mat.Dense{}
	k.CloneFrom(kf.k)

	return k
}

func (kf *Filter) ready() error {
	if kf.cfg == nil {
		return filter.ErrNotConfigured
	}
	if kf.x == nil {
		return filter.ErrNotInitialized
	}

	return nil
}
