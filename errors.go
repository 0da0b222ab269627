package filter

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when an operation that needs the model
// dimensions is called before Configure.
var ErrNotConfigured = errors.New("filter is not configured")

// ErrNotInitialized is returned when Predict, Update or a state accessor is
// called before SetState.
var ErrNotInitialized = errors.New("filter state is not initialized")

// DimensionError reports a matrix or vector whose shape is inconsistent with
// the declared state and observation dimensions. It is always returned before
// any filter state has been mutated.
type DimensionError struct {
	// Op is the failing operation
	Op string
	// Name is the offending matrix
	Name string
	// Rows and Cols are the supplied dimensions
	Rows, Cols int
	// WantRows and WantCols are the expected dimensions
	WantRows, WantCols int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: invalid %s dimensions: [%d x %d], need [%d x %d]",
		e.Op, e.Name, e.Rows, e.Cols, e.WantRows, e.WantCols)
}

// SingularMatrixError reports that the innovation covariance S could not be
// inverted during Update. The filter state is unchanged when it is returned.
type SingularMatrixError struct {
	// Err is the underlying inversion failure
	Err error
}

func (e *SingularMatrixError) Error() string {
	return fmt.Sprintf("innovation covariance is singular: %v", e.Err)
}

// Unwrap returns the underlying inversion failure.
func (e *SingularMatrixError) Unwrap() error {
	return e.Err
}
