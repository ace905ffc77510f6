package domain

import (
	"fmt"
	"time"
)

// ValidationError indicates malformed or rejected caller input.
// It is always locally recoverable by the caller.
type ValidationError struct {
	Message string
	Field   string
}

// NewValidationError creates a ValidationError with a message.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// NewFieldValidationError creates a ValidationError scoped to a single field.
func NewFieldValidationError(field, message string) *ValidationError {
	return &ValidationError{Message: message, Field: field}
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return "validation failed: " + e.Message
}

// NotFoundError indicates a missing resource reference.
type NotFoundError struct {
	Resource string
	ID       string
}

// NewNotFoundError creates a NotFoundError for the given resource and identifier.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ConflictError indicates the request lost to a concurrent writer or violated
// an exclusivity constraint. The core never retries these itself.
type ConflictError struct {
	Message string
}

// NewConflictError creates a ConflictError with a message.
func NewConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Message
}

// InvalidStateError indicates a lifecycle transition attempted from a state
// that does not permit it. It names the current state so callers can report it.
type InvalidStateError struct {
	CurrentState string
	TargetState  string
}

// NewInvalidStateError creates an InvalidStateError for a rejected transition.
func NewInvalidStateError(current, target string) *InvalidStateError {
	return &InvalidStateError{CurrentState: current, TargetState: target}
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot transition from %s to %s", e.CurrentState, e.TargetState)
}

// ForbiddenError indicates the caller is authenticated but not allowed to act
// on the resource.
type ForbiddenError struct {
	Message string
}

// NewForbiddenError creates a ForbiddenError with a message.
func NewForbiddenError(message string) *ForbiddenError {
	return &ForbiddenError{Message: message}
}

func (e *ForbiddenError) Error() string {
	return "forbidden: " + e.Message
}

// RateLimitError indicates the request was denied by the rate limiter.
// ResetAt tells the caller when the current window ends.
type RateLimitError struct {
	ResetAt time.Time
}

// NewRateLimitError creates a RateLimitError carrying the window reset time.
func NewRateLimitError(resetAt time.Time) *RateLimitError {
	return &RateLimitError{ResetAt: resetAt}
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, resets at %s", e.ResetAt.UTC().Format(time.RFC3339))
}

// UnavailableError indicates the booking store timed out or refused the
// connection. It is fatal to the current request but retryable by the caller,
// and must stay distinct from ConflictError.
type UnavailableError struct {
	Op  string
	Err error
}

// NewUnavailableError wraps a store failure for the given operation.
func NewUnavailableError(op string, err error) *UnavailableError {
	return &UnavailableError{Op: op, Err: err}
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}
