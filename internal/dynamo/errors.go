package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for integration operations.
var (
	// ErrConfiguration indicates a solver built with a non-positive time step,
	// a negative tolerance or an unknown stepper/log type.
	ErrConfiguration = errors.New("dynamo: invalid solver configuration")

	// ErrUndefined indicates an operation on a solver that is not defined.
	ErrUndefined = errors.New("dynamo: numerical solver is undefined")

	// ErrStepRejection indicates the adaptive controller could not find an
	// acceptable step size.
	ErrStepRejection = errors.New("dynamo: adaptive step rejected too many times")

	// ErrInvalidState indicates a state vector containing NaN or Inf.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrMaxSteps indicates the step budget ran out before reaching the target.
	ErrMaxSteps = errors.New("dynamo: maximum number of steps exceeded")

	// ErrCanceled indicates the integration was interrupted by its context.
	ErrCanceled = errors.New("dynamo: integration canceled by context")

	// ErrEmptyTimes indicates an empty list of output times.
	ErrEmptyTimes = errors.New("dynamo: time array is empty")

	// ErrNonMonotonicTimes indicates output times that change direction.
	ErrNonMonotonicTimes = errors.New("dynamo: output times are not monotonic")

	// ErrDimensionMismatch indicates mismatched state and system dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrUnknownStepper indicates a stepper name or type with no registered implementation.
	ErrUnknownStepper = errors.New("dynamo: unknown stepper")

	// ErrUnknownLogType indicates an unrecognised log type.
	ErrUnknownLogType = errors.New("dynamo: unknown log type")
)

// IntegrationError wraps an error with integration context.
type IntegrationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("step %d (t=%.6g): %v", e.Step, e.Time, e.Wrapped)
}

func (e *IntegrationError) Unwrap() error {
	return e.Wrapped
}

// DimensionError reports the expected and actual state sizes.
type DimensionError struct {
	Want, Got int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%v: system expects %d components, got %d", ErrDimensionMismatch, e.Want, e.Got)
}

func (e *DimensionError) Unwrap() error {
	return ErrDimensionMismatch
}
