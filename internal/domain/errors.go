package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrValidation      = errors.New("validation error")
	ErrDataUnavailable = errors.New("data unavailable")
	ErrTransient       = errors.New("transient store failure")

	// ErrLanguageUnsupported is returned when neither language of a pair is primary.
	ErrLanguageUnsupported = fmt.Errorf("language unsupported: %w", ErrDataUnavailable)
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

// UnavailableError names the language pair for which no data was ingested.
type UnavailableError struct {
	Source string
	Target string
	Reason string
}

func (e *UnavailableError) Error() string {
	msg := fmt.Sprintf("no data for %s -> %s", e.Source, e.Target)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *UnavailableError) Unwrap() error { return ErrDataUnavailable }

// PageNotFoundError reports a title that matched nothing in either direction.
// Suggestion is the closest indexed title, empty when none was close enough.
type PageNotFoundError struct {
	Input      string
	Normalized string
	Source     string
	Target     string
	Suggestion string
}

func (e *PageNotFoundError) Error() string {
	msg := fmt.Sprintf("page %q not found in %s", e.Input, e.Source)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

func (e *PageNotFoundError) Unwrap() error { return ErrNotFound }

// UnitError is a failed build unit. A run collects them instead of aborting.
type UnitError struct {
	Pair Pair
	Err  error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("unit %s: %v", e.Pair, e.Err)
}

func (e *UnitError) Unwrap() error { return e.Err }

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
