// Package apperr defines the error taxonomy shared by the repository and the
// HTTP layer. Every failure a handler can surface maps onto one of the kinds
// below; anything else is treated as Internal.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	Validation Kind = iota + 1
	Authentication
	Authorization
	NotFound
	Conflict
	Internal
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Authentication:
		return "authentication"
	case Authorization:
		return "authorization"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	default:
		return "internal"
	}
}

// FieldError carries per-field detail for validation failures.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithFields attaches field-level detail, used by request validation.
func (e *Error) WithFields(fields []FieldError) *Error {
	e.Fields = fields
	return e
}

// KindOf extracts the kind from err, defaulting to Internal for errors that
// did not originate in this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
