package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures for transport mapping.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindDatabase
)

// Error codes exposed in API error envelopes.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeDatabase   = "DATABASE_ERROR"
	CodeInternal   = "INTERNAL_ERROR"
)

// Error is a classified application error.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func NewValidationError(message string, details map[string]any) *Error {
	if details == nil {
		details = map[string]any{}
	}
	return &Error{Kind: KindValidation, Code: CodeValidation, Message: message, Details: details}
}

// InvalidField wraps a field-level validation failure.
func InvalidField(field string, err error) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    CodeValidation,
		Message: fmt.Sprintf("invalid %s", field),
		Details: map[string]any{"field": field, "error": err.Error()},
		Err:     err,
	}
}

func NewNotFoundError(resource, id string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Code:    CodeNotFound,
		Message: resource + " not found",
		Details: map[string]any{"resource": resource, "id": id},
	}
}

// NewDatabaseError wraps a store failure. The underlying error is kept for
// logging but not exposed in details.
func NewDatabaseError(message string, err error) *Error {
	return &Error{Kind: KindDatabase, Code: CodeDatabase, Message: message, Details: map[string]any{}, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsNotFound(err error) bool   { return KindOf(err) == KindNotFound }
func IsValidation(err error) bool { return KindOf(err) == KindValidation }
