// Package filter defines the contract of a discrete-time linear Kalman filter.
//
// The filter maintains a state estimate x and its covariance P for a system
// with fixed dynamics
//
//	x[k+1] = F*x[k] + w,  w ~ N(0, Q)
//	z[k]   = H*x[k] + v,  v ~ N(0, R)
//
// Concrete implementations live in the generic, prealloc and compiled
// subpackages. They share the same numerical contract and differ only in how
// they execute the linear algebra, so they can be substituted freely.
package filter

import "gonum.org/v1/gonum/mat"

// Filter is a discrete-time linear Kalman filter.
//
// A filter moves through the states
//
//	Unconfigured -> Configured (Configure) -> Initialized (SetState) -> Running
//
// Predict and Update may then be called any number of times in any order.
// Calling SetState again resets the estimate. Calling Configure again returns
// the filter to the Configured state and discards the current estimate.
//
// A Filter is not safe for concurrent use; it assumes a single owner calling
// its methods sequentially. Independent instances are fully isolated from one
// another and may be used from different goroutines.
//
// Over many iterations P can drift away from exact symmetry and positive
// semi-definiteness due to floating point rounding. This is a known
// limitation of the covariance update form used here; no symmetrization or
// Joseph-form correction is applied.
type Filter interface {
	// Configure binds the fixed model matrices: state transition f (n x n),
	// process noise covariance q (n x n) and observation matrix h (m x n).
	// It returns DimensionError if the shapes are inconsistent.
	Configure(f, q, h mat.Matrix) error
	// SetState installs the initial state mean x (length n) and covariance
	// p (n x n) by value. It returns DimensionError on shape mismatch.
	SetState(x mat.Vector, p mat.Symmetric) error
	// Predict advances the estimate one time step with no measurement:
	//  x <- F*x
	//  P <- F*P*F' + Q
	Predict() error
	// Update corrects the estimate with measurement z (length m) and
	// measurement noise covariance r (m x m):
	//  y <- z - H*x
	//  S <- H*P*H' + R
	//  K <- P*H'*inv(S)
	//  x <- x + K*y
	//  P <- P - K*H*P
	// It returns SingularMatrixError if S cannot be inverted; x and P are
	// then left exactly as they were before the call.
	Update(z mat.Vector, r mat.Symmetric) error
	// State returns a copy of the current state mean.
	State() (mat.Vector, error)
	// Covariance returns a copy of the current state covariance.
	Covariance() (mat.Symmetric, error)
	// Estimate returns the current (x, P) pair as one snapshot.
	Estimate() (Estimate, error)
}

// Estimate is a filter state estimate.
type Estimate interface {
	// Val returns estimate value
	Val() mat.Vector
	// Cov returns estimate covariance
	Cov() mat.Symmetric
}

// Noise is additive system noise used to drive simulations.
type Noise interface {
	// Mean returns noise mean
	Mean() []float64
	// Cov returns covariance matrix of the noise
	Cov() mat.Symmetric
	// Sample returns a sample of the noise
	Sample() mat.Vector
	// Reset resets the noise
	Reset()
}
