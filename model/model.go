// Package model holds the fixed, time-invariant system model shared by all
// filter strategies.
package model

import (
	"gonum.org/v1/gonum/mat"

	filter "github.com/statespace/linkalman"
)

// Config is the immutable model triple (F, Q, H) with the state and
// observation dimensions derived from it. A Config is built once, deep-copies
// its inputs and is never mutated afterwards, so one instance may be read by
// any number of filters.
type Config struct {
	// f is the state transition matrix (n x n)
	f *mat.Dense
	// q is the process noise covariance (n x n)
	q *mat.Dense
	// h is the observation matrix (m x n)
	h *mat.Dense
	// n is the state dimension, m the observation dimension
	n, m int
}

// NewConfig validates the shapes of f (n x n), q (n x n) and h (m x n),
// derives n and m and returns a Config holding copies of all three.
// It returns filter.DimensionError if f is not square, q is not n x n or
// h does not have n columns.
func NewConfig(f, q, h mat.Matrix) (*Config, error) {
	fr, fc := f.Dims()
	if fr != fc || fr == 0 {
		return nil, &filter.DimensionError{
			Op: "configure", Name: "F",
			Rows: fr, Cols: fc, WantRows: fc, WantCols: fc,
		}
	}
	n := fc

	qr, qc := q.Dims()
	if qr != n || qc != n {
		return nil, &filter.DimensionError{
			Op: "configure", Name: "Q",
			Rows: qr, Cols: qc, WantRows: n, WantCols: n,
		}
	}

	hr, hc := h.Dims()
	if hc != n || hr == 0 {
		return nil, &filter.DimensionError{
			Op: "configure", Name: "H",
			Rows: hr, Cols: hc, WantRows: hr, WantCols: n,
		}
	}
	m := hr

	c := &Config{
		f: mat.DenseCopyOf(f),
		q: mat.DenseCopyOf(q),
		h: mat.DenseCopyOf(h),
		n: n,
		m: m,
	}

	return c, nil
}

// Dims returns the state dimension n and the observation dimension m.
func (c *Config) Dims() (n, m int) {
	return c.n, c.m
}

// F returns the state transition matrix. The returned matrix is shared,
// read-only storage; callers must not modify it.
func (c *Config) F() *mat.Dense { return c.f }

// Q returns the process noise covariance. Shared read-only storage.
func (c *Config) Q() *mat.Dense { return c.q }

// H returns the observation matrix. Shared read-only storage.
func (c *Config) H() *mat.Dense { return c.h }

// CheckState validates an initial state mean and covariance against the
// model dimensions. It returns filter.DimensionError on mismatch.
func (c *Config) CheckState(x mat.Vector, p mat.Symmetric) error {
	if x.Len() != c.n {
		return &filter.DimensionError{
			Op: "set state", Name: "x",
			Rows: x.Len(), Cols: 1, WantRows: c.n, WantCols: 1,
		}
	}
	if p.Symmetric() != c.n {
		return &filter.DimensionError{
			Op: "set state", Name: "P",
			Rows: p.Symmetric(), Cols: p.Symmetric(), WantRows: c.n, WantCols: c.n,
		}
	}
	return nil
}

// CheckMeasurement validates a measurement and its noise covariance against
// the model dimensions. It returns filter.DimensionError on mismatch.
func (c *Config) CheckMeasurement(z mat.Vector, r mat.Symmetric) error {
	if z.Len() != c.m {
		return &filter.DimensionError{
			Op: "update", Name: "z",
			Rows: z.Len(), Cols: 1, WantRows: c.m, WantCols: 1,
		}
	}
	if r.Symmetric() != c.m {
		return &filter.DimensionError{
			Op: "update", Name: "R",
			Rows: r.Symmetric(), Cols: r.Symmetric(), WantRows: c.m, WantCols: c.m,
		}
	}
	return nil
}
