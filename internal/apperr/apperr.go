// Package apperr holds the error kinds the API layer maps to HTTP statuses.
// Store failures are not converted; they travel wrapped with %w.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrForbidden is returned when the caller's role does not allow an action.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized is returned for missing, invalid or revoked credentials.
	ErrUnauthorized = errors.New("unauthorized")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

type NotFoundError struct {
	Resource string
	Message  string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Resource + " not found"
}

func NotFound(resource, message string) error {
	return &NotFoundError{Resource: resource, Message: message}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}
