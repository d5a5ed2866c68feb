package services

import (
	"context"
	"errors"
	"fmt"

	"monetization-ledger/internal/repository"
)

var (
	ErrNotFound     = repository.ErrNotFound
	ErrInvalidState = errors.New("invalid state")
	ErrTransient    = errors.New("transient failure")
	ErrQueueFull    = errors.New("event queue is full")
)

// ValidationError reports malformed caller input.
type ValidationError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsTransient reports whether retrying the operation later can succeed.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient) ||
		errors.Is(err, ErrQueueFull) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

func transient(err error) error {
	return fmt.Errorf("%w: %v", ErrTransient, err)
}
