package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound          = errors.New("resource not found")
	ErrRuleNotFound      = fmt.Errorf("%w: rule", ErrNotFound)
	ErrValidatorNotFound = fmt.Errorf("%w: validator", ErrNotFound)
	ErrColumnNotFound    = fmt.Errorf("%w: column", ErrNotFound)
	ErrTableNotFound     = fmt.Errorf("%w: table", ErrNotFound)

	// Rule errors
	ErrUnsupportedRuleType = errors.New("unsupported rule type")
	ErrUnsupportedSubtype  = errors.New("unsupported rule subtype")
	ErrInvalidRule         = errors.New("invalid rule definition")

	// Execution errors
	ErrUnsupportedMode  = errors.New("unsupported execution mode")
	ErrDatasetShape     = errors.New("dataset shape unsuitable for execution mode")
	ErrInsufficientData = errors.New("insufficient data for check")

	// Configuration errors
	ErrInvalidModel     = errors.New("invalid scoring model")
	ErrInvalidThreshold = errors.New("quality threshold out of range")
	ErrInvalidWeights   = errors.New("invalid dimension weights")

	// Adapter errors
	ErrAdapterClosed = errors.New("adapter is closed")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewUnsupportedSubtypeError(subtype string, ruleName string) error {
	return fmt.Errorf("%w: %q in rule %q", ErrUnsupportedSubtype, subtype, ruleName)
}

func NewDatasetShapeError(expected string, got interface{}) error {
	return fmt.Errorf("%w: expected %s, got %T", ErrDatasetShape, expected, got)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsUnsupportedRuleError(err error) bool {
	return errors.Is(err, ErrUnsupportedRuleType) ||
		errors.Is(err, ErrUnsupportedSubtype)
}

func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidModel) ||
		errors.Is(err, ErrInvalidThreshold) ||
		errors.Is(err, ErrInvalidWeights)
}
