// Package matrix provides small gonum matrix helpers shared by the filter
// strategies.
package matrix

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ToSym copies the upper triangle of the square matrix m into a new SymDense.
// The lower triangle is mirrored, not averaged, so any floating point
// asymmetry that accumulated in m is resolved in favour of the upper half.
// It panics if m is not square.
func ToSym(m mat.Matrix) *mat.SymDense {
	r, c := m.Dims()
	if r != c {
		panic("matrix: ToSym of a non-square matrix")
	}

	s := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			s.SetSym(i, j, m.At(i, j))
		}
	}

	return s
}

// SymToDense copies the symmetric matrix s into a new Dense.
func SymToDense(s mat.Symmetric) *mat.Dense {
	n := s.Symmetric()
	d := mat.NewDense(n, n, nil)
	d.Copy(s)

	return d
}

// Identity returns the n x n identity matrix.
func Identity(n int) *mat.Dense {
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, 1.0)
	}

	return d
}

// MaxAbsDiff returns the largest absolute elementwise difference between a
// and b. It panics if their dimensions differ.
func MaxAbsDiff(a, b mat.Matrix) float64 {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		panic("matrix: MaxAbsDiff dimension mismatch")
	}

	diffs := make([]float64, 0, ar*ac)
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			diffs = append(diffs, a.At(i, j)-b.At(i, j))
		}
	}
	for i, d := range diffs {
		if d < 0 {
			diffs[i] = -d
		}
	}

	return floats.Max(diffs)
}
