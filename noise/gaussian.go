// Package noise provides additive noise sources used to drive simulations
// and tests. Filters themselves never sample noise: they take explicit Q and
// R covariances.
package noise

import (
	"fmt"
	"time"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Gaussian is gaussian noise
type Gaussian struct {
	// dist is a multivariate normal distribution
	dist *distmv.Normal
	// mean is Gaussian mean
	mean []float64
	// cov is Gaussian covariance
	cov mat.Symmetric
	// seed recreates dist on Reset
	seed uint64
}

// NewGaussian creates new Gaussian noise with given mean and covariance,
// seeded from the wall clock. It returns error if the distribution can not
// be created, e.g. when cov is not positive definite.
func NewGaussian(mean []float64, cov mat.Symmetric) (*Gaussian, error) {
	return NewGaussianSeeded(mean, cov, uint64(time.Now().UnixNano()))
}

// NewGaussianSeeded creates new Gaussian noise with given mean, covariance
// and random seed. Two sources created with the same arguments generate the
// same sample sequence, which makes simulation runs reproducible.
func NewGaussianSeeded(mean []float64, cov mat.Symmetric, seed uint64) (*Gaussian, error) {
	if len(mean) != cov.Symmetric() {
		return nil, fmt.Errorf("invalid noise dimensions: mean %d, cov %d", len(mean), cov.Symmetric())
	}

	dist, ok := distmv.NewNormal(mean, cov, rand.New(rand.NewSource(seed)))
	if !ok {
		return nil, fmt.Errorf("failed to create Gaussian noise")
	}

	return &Gaussian{
		dist: dist,
		mean: mean,
		cov:  cov,
		seed: seed,
	}, nil
}

// Sample generates a sample from Gaussian noise and returns it.
func (g *Gaussian) Sample() mat.Vector {
	r := g.dist.Rand(nil)
	return mat.NewVecDense(len(r), r)
}

// Cov returns covariance matrix of Gaussian noise.
func (g *Gaussian) Cov() mat.Symmetric {
	return g.cov
}

// Mean returns Gaussian mean.
func (g *Gaussian) Mean() []float64 {
	return g.mean
}

// Reset rewinds the noise to the start of its sample sequence.
func (g *Gaussian) Reset() {
	dist, ok := distmv.NewNormal(g.mean, g.cov, rand.New(rand.NewSource(g.seed)))
	if ok {
		g.dist = dist
	}
}

// String implements the Stringer interface.
func (g *Gaussian) String() string {
	return fmt.Sprintf("Gaussian{\nMean=%v\nCov=%v\n}", g.mean, mat.Formatted(g.cov, mat.Prefix("    "), mat.Squeeze()))
}
