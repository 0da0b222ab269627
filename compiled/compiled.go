// Package compiled implements the Kalman filter on top of a tiny
// matrix-expression engine. The predict and update formulas are parsed into
// executable instruction sequences exactly once, at configuration time, and
// replayed on every call. Variable names are bound to the live filter
// storage; the measurement names z and R are rebound to the caller's arrays
// on each Update, which swaps slot targets without copying or recompiling.
package compiled

import (
	"gonum.org/v1/gonum/mat"

	filter "github.com/statespace/linkalman"
	"github.com/statespace/linkalman/estimate"
	"github.com/statespace/linkalman/matrix"
	"github.com/statespace/linkalman/model"
)

// predictSrc and updateSrc are the filter formulas as compiled. Statement
// order matters: intermediate variables feed later statements, and the
// inversion inside K's statement must fail before x or P is assigned.
var (
	predictSrc = []string{
		"x = F*x",
		"P = F*P*F' + Q",
	}
	updateSrc = []string{
		"y = z - H*x",
		"K = P*H'*inv(H*P*H' + R)",
		"x = x + K*y",
		"P = P - K*(H*P)",
	}
)

// Filter is the compiled-expression Kalman filter strategy.
type Filter struct {
	// cfg is the fixed system model
	cfg *model.Config
	// vars holds the name bindings shared by all compiled programs
	vars *env
	// x (n x 1) and p (n x n) are the live state storage bound to the
	// names x and P
	x *mat.Dense
	p *mat.Dense
	// y (m x 1) and k (n x m) are engine-owned assignment targets
	y *mat.Dense
	k *mat.Dense
	// zero-valued placeholders bound to z and R until the first Update
	zPh *mat.Dense
	rPh *mat.Dense
	// compiled programs, replayed in order
	predict []*program
	update  []*program
	// init tracks whether SetState has run since the last Configure
	init bool
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

// Configure binds the model matrices, binds every variable name to its
// storage and compiles the predict and update statement sequences.
// Reconfiguring rebuilds bindings and programs and discards the current
// state estimate.
func (kf *Filter) Configure(f, q, h mat.Matrix) error {
	cfg, err := model.NewConfig(f, q, h)
	if err != nil {
		return err
	}
	n, m := cfg.Dims()

	kf.cfg = cfg
	kf.x = mat.NewDense(n, 1, nil)
	kf.p = mat.NewDense(n, n, nil)
	kf.y = mat.NewDense(m, 1, nil)
	kf.k = mat.NewDense(n, m, nil)
	kf.zPh = mat.NewDense(m, 1, nil)
	kf.rPh = mat.NewDense(m, m, nil)
	kf.init = false
	kf.updated = false

	kf.vars = newEnv()
	kf.vars.bind("F", cfg.F())
	kf.vars.bind("Q", cfg.Q())
	kf.vars.bind("H", cfg.H())
	kf.vars.bind("x", kf.x)
	kf.vars.bind("P", kf.p)
	kf.vars.bind("y", kf.y)
	kf.vars.bind("K", kf.k)
	kf.vars.bind("z", kf.zPh)
	kf.vars.bind("R", kf.rPh)

	kf.predict = kf.predict[:0]
	for _, src := range predictSrc {
		prog, err := compile(src, kf.vars)
		if err != nil {
			return err
		}
		kf.predict = append(kf.predict, prog)
	}

	kf.update = kf.update[:0]
	for _, src := range updateSrc {
		prog, err := compile(src, kf.vars)
		if err != nil {
			return err
		}
		kf.update = append(kf.update, prog)
	}

	return nil
}

// SetState copies the initial state mean and covariance into the storage
// the x and P names are bound to.
func (kf *Filter) SetState(x mat.Vector, p mat.Symmetric) error {
	if kf.cfg == nil {
		return filter.ErrNotConfigured
	}
	if err := kf.cfg.CheckState(x, p); err != nil {
		return err
	}

	n, _ := kf.cfg.Dims()
	for i := 0; i < n; i++ {
		kf.x.Set(i, 0, x.AtVec(i))
	}
	kf.p.Copy(p)
	kf.init = true

	return nil
}

// Predict replays the compiled predict sequence.
func (kf *Filter) Predict() error {
	if err := kf.ready(); err != nil {
		return err
	}

	for _, prog := range kf.predict {
		if err := prog.run(); err != nil {
			return err
		}
	}

	return nil
}

// Update rebinds z and R to the caller's measurement arrays and replays the
// compiled update sequence. A filter.SingularMatrixError from the gain
// statement aborts the replay before x or P is assigned.
func (kf *Filter) Update(z mat.Vector, r mat.Symmetric) error {
	if err := kf.ready(); err != nil {
		return err
	}
	if err := kf.cfg.CheckMeasurement(z, r); err != nil {
		return err
	}

	kf.vars.bind("z", z)
	kf.vars.bind("R", r)

	for _, prog := range kf.update {
		if err := prog.run(); err != nil {
			return err
		}
	}
	kf.updated = true

	return nil
}

// State returns a copy of the current state mean.
func (kf *Filter) State() (mat.Vector, error) {
	if err := kf.ready(); err != nil {
		return nil, err
	}

	x := &mat.VecDense{}
	x.CloneFromVec(kf.x.ColView(0))

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

	return estimate.NewBase(kf.x.ColView(0), matrix.ToSym(kf.p))
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
