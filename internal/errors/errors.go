package errors

import (
	"errors"
	"fmt"
)

// Application-specific errors
var (
	ErrNotFound         = errors.New("resource not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNotConfigured    = errors.New("billing not configured")
	ErrNoFee            = errors.New("member has no annual fee")
	ErrDuplicateCharge  = errors.New("charge already recorded for period")
	ErrStoreUnavailable = errors.New("durable store unavailable")
	ErrBadSignature     = errors.New("webhook signature verification failed")
)

// ProcessorError represents a failed call to the payment processor.
// It is caught at the member boundary and recorded as a failed ledger
// entry; it never aborts a billing run.
type ProcessorError struct {
	Op  string
	Err error
}

func (e ProcessorError) Error() string {
	return fmt.Sprintf("processor error during %s: %v", e.Op, e.Err)
}

func (e ProcessorError) Unwrap() error {
	return e.Err
}

// IntegrityError reports an unexpected ledger cardinality for a
// correlation id. Logged, never fatal.
type IntegrityError struct {
	CorrelationID string
	Matches       int
}

func (e IntegrityError) Error() string {
	return fmt.Sprintf("ledger integrity violation: correlation id %s matched %d entries", e.CorrelationID, e.Matches)
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// DatabaseError represents a database-related error
type DatabaseError struct {
	Operation string
	Err       error
}

func (e DatabaseError) Error() string {
	return fmt.Sprintf("database error during %s: %v", e.Operation, e.Err)
}

func (e DatabaseError) Unwrap() error {
	return e.Err
}
