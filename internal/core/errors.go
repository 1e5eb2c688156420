package core

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrAttachmentUpload   = errors.New("attachment upload failed")
)

var (
	ErrInvalidAmount    = &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	ErrAmountPrecision  = &ValidationError{Field: "amount", Reason: "must not have more than two decimal places"}
	ErrInvalidUnit      = &ValidationError{Field: "unit", Reason: "out of range"}
	ErrEmptyName        = &ValidationError{Field: "name", Reason: "must not be empty"}
	ErrEmptyDescription = &ValidationError{Field: "description", Reason: "must not be empty"}
	ErrZeroDate         = &ValidationError{Field: "date", Reason: "must not be zero"}
)

// ValidationError reports an input rejected before any state was touched.
// errors.Is(err, ErrValidation) holds for every ValidationError.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError for field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NotFoundf wraps ErrNotFound with a description of the missing record.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}
