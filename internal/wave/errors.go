package wave

import (
	"errors"
	"fmt"
)

var (
	// ErrStabilityViolation indicates vpmax·dt/min(dx,dz) is not below √2/π.
	ErrStabilityViolation = errors.New("wave: stability condition violated")

	// ErrInvalidConfig indicates a non-positive dt or endt, an unready
	// medium or a misplaced source.
	ErrInvalidConfig = errors.New("wave: invalid simulator configuration")

	// ErrDiverged indicates a displacement field that became NaN or Inf.
	ErrDiverged = errors.New("wave: displacement diverged (NaN or Inf detected)")
)

// StabilityError reports the Courant number that failed the bound.
type StabilityError struct {
	Courant float64
	Limit   float64
}

func (e *StabilityError) Error() string {
	return fmt.Sprintf("wave: vpmax*dt/min(dx,dz) = %.4f, must be less than %.4f", e.Courant, e.Limit)
}

func (e *StabilityError) Unwrap() error {
	return ErrStabilityViolation
}

// StepError wraps a failure with the step at which it happened.
type StepError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.6g): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
