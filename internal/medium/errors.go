package medium

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch indicates a density or stiffness field whose shape
	// differs from the grid.
	ErrShapeMismatch = errors.New("medium: field shape does not match grid")

	// ErrNotReady indicates use of a medium before InitByVal succeeded.
	ErrNotReady = errors.New("medium: not initialized")

	// ErrUnsupportedClass indicates an unknown symmetry class name.
	ErrUnsupportedClass = errors.New("medium: unsupported symmetry class")

	// ErrMissingField indicates a field the symmetry class requires was not given.
	ErrMissingField = errors.New("medium: required field missing")

	// ErrInvalidDensity indicates a density cell that is not strictly positive.
	ErrInvalidDensity = errors.New("medium: density must be positive")
)

// ShapeError reports which field had the wrong shape.
type ShapeError struct {
	Field              string
	Rows, Cols         int
	WantRows, WantCols int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("medium: %s is %dx%d, grid is %dx%d", e.Field, e.Rows, e.Cols, e.WantRows, e.WantCols)
}

func (e *ShapeError) Unwrap() error {
	return ErrShapeMismatch
}
