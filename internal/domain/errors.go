package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers. Services return these unwrapped or
// wrapped with context; repositories map database errors onto them.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation error")

	// Precondition failures.
	ErrCycleExists      = errors.New("cycle already generated")
	ErrRuleNotSet       = errors.New("rule not set for date")
	ErrAlreadyPaid      = errors.New("already paid")
	ErrNotAMember       = errors.New("not an active member")
	ErrActiveLoanExists = errors.New("active loan already exists")
	ErrLoanNotPending   = errors.New("loan is not pending")
	ErrGroupInactive    = errors.New("group is not active")

	// Solvency gate.
	ErrInsufficientFund = errors.New("insufficient fund")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// NewValidationErrors creates a ValidationError from multiple field errors.
func NewValidationErrors(errs []FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}
