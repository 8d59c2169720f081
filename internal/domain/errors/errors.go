package errors

import (
	"errors"
	"fmt"
)

var (
	// Booking errors
	ErrBookingNotFound = errors.New("booking not found")
	ErrStaleTransition = errors.New("booking status changed concurrently")
	ErrInvalidEdge     = errors.New("booking status edge not allowed")

	// Payment intent errors
	ErrPaymentNotFound       = errors.New("payment intent not found")
	ErrDuplicateActiveIntent = errors.New("an active payment intent already exists for this booking")
	ErrMaxVerifyAttempts     = errors.New("verify attempt ceiling exceeded")
	ErrAmountMismatch        = errors.New("verified amount does not match intent amount")
	ErrCurrencyMismatch      = errors.New("verified currency does not match intent currency")

	// Webhook event errors
	ErrDuplicateEvent = errors.New("provider event already recorded")

	// Provider errors
	ErrProviderNotFound  = errors.New("payment provider not found")
	ErrTransientProvider = errors.New("provider temporarily unavailable")
	ErrPermanentProvider = errors.New("provider rejected the request")

	// Lease errors. Contention is an expected outcome, not a failure.
	ErrLockContested = errors.New("reconcile lease held by another worker")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidInput     = errors.New("invalid input")

	// Auth errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// DomainError wraps errors with a stable machine-readable code.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// IsTransient reports whether err should be retried against the provider.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientProvider)
}
