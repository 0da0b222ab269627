// Package prealloc implements the Kalman filter with every intermediate
// buffer sized once at configuration time and reused on every call. The
// math is identical to the generic strategy; the difference is purely in
// storage discipline: the shape of the computation is fixed by Configure,
// only the values change per call.
package prealloc

import (
	"gonum.org/v1/gonum/mat"

	filter "github.com/statespace/linkalman"
	"github.com/statespace/linkalman/estimate"
	"github.com/statespace/linkalman/matrix"
	"github.com/statespace/linkalman/model"
)

// Filter is the buffer-reusing Kalman filter strategy. All scratch buffers
// are owned exclusively by the instance and never escape to the caller.
type Filter struct {
	// cfg is the fixed system model
	cfg *model.Config
	// x is the state mean, p the state covariance
	x *mat.VecDense
	p *mat.Dense
	// init tracks whether SetState has run since the last Configure
	init bool

	// predict scratch: F*x, F*P, F*P*F'
	fx   *mat.VecDense
	fp   *mat.Dense
	fpft *mat.Dense

	// update scratch: H*x, innovation, P*H', S, inv(S), gain, K*y, H*P, K*H*P
	hx   *mat.VecDense
	y    *mat.VecDense
	pht  *mat.Dense
	s    *mat.Dense
	sInv *mat.Dense
	k    *mat.Dense
	ky   *mat.VecDense
	hp   *mat.Dense
	khp  *mat.Dense

	// updated tracks whether k holds a gain from a successful Update
	updated bool
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

// Configure binds the model matrices and sizes every scratch buffer from the
// derived dimensions (n, m). Reconfiguring re-sizes all buffers and discards
// the current state estimate.
func (kf *Filter) Configure(f, q, h mat.Matrix) error {
	cfg, err := model.NewConfig(f, q, h)
	if err != nil {
		return err
	}
	n, m := cfg.Dims()

	kf.cfg = cfg
	kf.x = mat.NewVecDense(n, nil)
	kf.p = mat.NewDense(n, n, nil)
	kf.init = false
	kf.updated = false

	kf.fx = mat.NewVecDense(n, nil)
	kf.fp = mat.NewDense(n, n, nil)
	kf.fpft = mat.NewDense(n, n, nil)

	kf.hx = mat.NewVecDense(m, nil)
	kf.y = mat.NewVecDense(m, nil)
	kf.pht = mat.NewDense(n, m, nil)
	kf.s = mat.NewDense(m, m, nil)
	kf.sInv = mat.NewDense(m, m, nil)
	kf.k = mat.NewDense(n, m, nil)
	kf.ky = mat.NewVecDense(n, nil)
	kf.hp = mat.NewDense(m, n, nil)
	kf.khp = mat.NewDense(n, n, nil)

	return nil
}

// SetState copies the initial state mean and covariance into the filter's
// own storage.
func (kf *Filter) SetState(x mat.Vector, p mat.Symmetric) error {
	if kf.cfg == nil {
		return filter.ErrNotConfigured
	}
	if err := kf.cfg.CheckState(x, p); err != nil {
		return err
	}

	kf.x.CopyVec(x)
	kf.p.Copy(p)
	kf.init = true

	return nil
}

// Predict advances the estimate one time step, writing every intermediate
// into preallocated scratch.
func (kf *Filter) Predict() error {
	if err := kf.ready(); err != nil {
		return err
	}

	kf.fx.MulVec(kf.cfg.F(), kf.x)
	kf.x.CopyVec(kf.fx)

	kf.fp.Mul(kf.cfg.F(), kf.p)
	kf.fpft.Mul(kf.fp, kf.cfg.F().T())
	kf.fpft.Add(kf.fpft, kf.cfg.Q())
	kf.p.Copy(kf.fpft)

	return nil
}

// Update corrects the estimate with measurement z and measurement noise
// covariance r. The innovation covariance is inverted before x or P is
// touched, so a filter.SingularMatrixError leaves the state exactly as it
// was.
func (kf *Filter) Update(z mat.Vector, r mat.Symmetric) error {
	if err := kf.ready(); err != nil {
		return err
	}
	if err := kf.cfg.CheckMeasurement(z, r); err != nil {
		return err
	}

	// y = z - H*x
	kf.hx.MulVec(kf.cfg.H(), kf.x)
	kf.y.SubVec(z, kf.hx)

	// S = H*(P*H') + R
	kf.pht.Mul(kf.p, kf.cfg.H().T())
	kf.s.Mul(kf.cfg.H(), kf.pht)
	kf.s.Add(kf.s, r)

	if err := kf.sInv.Inverse(kf.s); err != nil {
		return &filter.SingularMatrixError{Err: err}
	}

	// K = P*H'*inv(S)
	kf.k.Mul(kf.pht, kf.sInv)

	// x = x + K*y
	kf.ky.MulVec(kf.k, kf.y)
	kf.x.AddVec(kf.x, kf.ky)

	// P = P - K*(H*P)
	kf.hp.Mul(kf.cfg.H(), kf.p)
	kf.khp.Mul(kf.k, kf.hp)
	kf.p.Sub(kf.p, kf.khp)

	kf.updated = true

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
// Update, or nil if Update has not run since Configure.
func (kf *Filter) Gain() mat.Matrix {
	if !kf.updated {
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
	if !kf.init {
		return filter.ErrNotInitialized
	}

	return nil
}
