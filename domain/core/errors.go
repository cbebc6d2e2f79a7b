package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Entry validation errors
	ErrInvalidConfig   = errors.New("invalid algorithm configuration")
	ErrDegenerateInput = errors.New("degenerate bandit instance")
	ErrEmptyGroup      = fmt.Errorf("%w: empty group", ErrDegenerateInput)
	ErrNoArms          = fmt.Errorf("%w: no arms", ErrDegenerateInput)
	ErrNoGroups        = fmt.Errorf("%w: no groups", ErrDegenerateInput)
	ErrArmOutOfRange   = fmt.Errorf("%w: arm index out of range", ErrDegenerateInput)

	// Bound evaluation errors
	ErrZeroPulls     = errors.New("confidence bound read for an arm with zero pulls")
	ErrInvalidRadius = errors.New("confidence radius is negative or NaN")

	// Sampling errors
	ErrEmptySample = errors.New("sampling requested for an empty arm collection")

	// Convergence errors
	ErrNonConvergence = errors.New("iteration ceiling exceeded before termination")
)

// Error constructors with context
func NewConfigError(field string, value float64) error {
	return fmt.Errorf("%w: %s must be finite and > 0, got %v", ErrInvalidConfig, field, value)
}

func NewEmptyGroupError(group GroupID) error {
	return fmt.Errorf("%w: %s", ErrEmptyGroup, group)
}

func NewArmRangeError(group GroupID, arm ArmID, numArms int) error {
	return fmt.Errorf("%w: %s references %s, environment has %d arms", ErrArmOutOfRange, group, arm, numArms)
}

func NewZeroPullsError(arm ArmID) error {
	return fmt.Errorf("%w: %s", ErrZeroPulls, arm)
}

// Error checking helpers
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

func IsDegenerateInputError(err error) bool {
	return errors.Is(err, ErrDegenerateInput)
}

func IsNonConvergenceError(err error) bool {
	return errors.Is(err, ErrNonConvergence)
}

func IsBoundError(err error) bool {
	return errors.Is(err, ErrZeroPulls) ||
		errors.Is(err, ErrInvalidRadius)
}
