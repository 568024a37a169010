package errors

import "fmt"

// ErrorCode represents an Engram error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrInvalidSource  ErrorCode = "INVALID_SOURCE"  // 400
	ErrInvalidKind    ErrorCode = "INVALID_KIND"    // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// Error represents a structured error with code, status, and details.
type Error struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *Error {
	return &Error{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewInvalidSource creates a 400 error for an unknown event source.
func NewInvalidSource(source string) *Error {
	return &Error{
		Code:    ErrInvalidSource,
		Status:  400,
		Message: fmt.Sprintf("unknown event source: %q", source),
		Details: map[string]any{"source": source},
	}
}

// NewInvalidKind creates a 400 error for an unknown decision kind.
func NewInvalidKind(kind string) *Error {
	return &Error{
		Code:    ErrInvalidKind,
		Status:  400,
		Message: fmt.Sprintf("decision kind must be one of: made, tradeoff, rejected, assumption (got %q)", kind),
		Details: map[string]any{"kind": kind},
	}
}

// NewNotFound creates a 404 error for a missing record.
func NewNotFound(identifier string) *Error {
	return &Error{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *Error {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is an Engram Error with the given code.
func Is(err error, code ErrorCode) bool {
	if e, ok := err.(*Error); ok {
		return e.Code == code
	}
	return false
}
