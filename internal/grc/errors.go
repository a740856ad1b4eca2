package grc

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/grcdash/grcdash/internal/platform/httpx"
)

// The sentinels wrap their httpx counterparts so HTTP layers can map them
// with httpx.RespondError.
var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = fmt.Errorf("grc: %w", httpx.ErrNotFound)
	// ErrValidation marks rejected input.
	ErrValidation = fmt.Errorf("grc: %w", httpx.ErrValidation)
	// ErrDuplicate marks a uniqueness violation.
	ErrDuplicate = fmt.Errorf("grc: %w", httpx.ErrDuplicate)
)

// ValidationError carries per-field messages for a rejected write.
type ValidationError struct {
	Fields map[string]string
	cause  error
}

// NewValidationError builds a ValidationError from field messages.
func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func duplicateError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}, cause: ErrDuplicate}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "grc: invalid input: " + strings.Join(parts, "; ")
}

// Is matches ErrValidation for every ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation || target == httpx.ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.cause
}

// FieldErrors extracts per-field messages from err, if any.
func FieldErrors(err error) map[string]string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Fields
	}
	return nil
}
