package keel

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
)

// Library sentinel errors
var (
	// ErrUnknown is the message carried by every InternalServerError
	ErrUnknown = NewError("an unknown error occurred")

	// ErrAuthenticationFailed is the message carried by every authentication rejection
	ErrAuthenticationFailed = NewError("user authentication failed")

	// ErrNotAuthenticated is returned when a protected route receives no bearer token
	ErrNotAuthenticated = NewError("not authenticated")

	// ErrAlreadyStarted is returned when a controller is added after Setup
	ErrAlreadyStarted = errors.New("keel: application already set up")

	// ErrNoRequestScope is returned when a request-scoped value is resolved without a live request scope
	ErrNoRequestScope = errors.New("keel: no request scope in context")

	// ErrProviderNotFound is returned when Resolve finds no provider for the type
	ErrProviderNotFound = errors.New("keel: no provider registered for type")
)

// Error is a message with positional arguments, the building block wrapped by
// the HTTP error kinds
type Error struct {
	Message string
	Args    []any
}

// NewError creates a new Error with the given message and arguments
func NewError(message string, args ...any) *Error {
	return &Error{Message: message, Args: args}
}

// Error implements the error interface
func (e *Error) Error() string {
	if len(e.Args) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s %v", e.Message, e.Args)
}

// Is reports whether target carries the same message, so that copies of the
// sentinel errors above still match with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == e.Message
}

// HTTPError is an error that knows its HTTP status code and how to render itself
type HTTPError struct {
	StatusCode int
	Message    string
	Args       []any
	Stacktrace string

	cause error
}

// ErrorBody is the JSON document written for every HTTPError
type ErrorBody struct {
	Message   string   `json:"message"`
	Args      []string `json:"args"`
	Traceback *string  `json:"traceback"`
}

// NewHTTPError wraps err into an HTTPError with the given status code. A nil
// err yields the status text as message.
func NewHTTPError(statusCode int, err error) *HTTPError {
	he := &HTTPError{StatusCode: statusCode, cause: err, Args: []any{}}

	var ke *Error
	switch {
	case err == nil:
		he.Message = http.StatusText(statusCode)
	case errors.As(err, &ke):
		he.Message = ke.Message
		he.Args = append(he.Args, ke.Args...)
	default:
		he.Message = err.Error()
	}
	return he
}

// Error implements the error interface
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Unwrap returns the wrapped error
func (e *HTTPError) Unwrap() error {
	return e.cause
}

// ToResponse renders the error into its status code and JSON body. The
// traceback is only included when showTraceback is set.
func (e *HTTPError) ToResponse(showTraceback bool) (int, ErrorBody) {
	body := ErrorBody{
		Message: e.Message,
		Args:    make([]string, 0, len(e.Args)),
	}
	for _, arg := range e.Args {
		body.Args = append(body.Args, fmt.Sprint(arg))
	}
	if showTraceback && e.Stacktrace != "" {
		trace := e.Stacktrace
		body.Traceback = &trace
	}
	return e.StatusCode, body
}

// BadRequest creates a 400 Bad Request error
func BadRequest(err error) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, err)
}

// Unauthorized creates a 401 Unauthorized error
func Unauthorized(err error) *HTTPError {
	return NewHTTPError(http.StatusUnauthorized, err)
}

// Forbidden creates a 403 Forbidden error
func Forbidden(err error) *HTTPError {
	return NewHTTPError(http.StatusForbidden, err)
}

// NotFound creates a 404 Not Found error
func NotFound(err error) *HTTPError {
	return NewHTTPError(http.StatusNotFound, err)
}

// Conflict creates a 409 Conflict error
func Conflict(err error) *HTTPError {
	return NewHTTPError(http.StatusConflict, err)
}

// InternalServerError creates a 500 error with the generic ErrUnknown message.
// The cause and the current stack are captured for debug responses.
func InternalServerError(err error) *HTTPError {
	he := NewHTTPError(http.StatusInternalServerError, ErrUnknown)
	he.cause = err
	he.Stacktrace = captureStack(err)
	return he
}

// AsHTTPError finds the first HTTPError in err's chain
func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}

func captureStack(err error) string {
	stack := string(debug.Stack())
	if err == nil {
		return stack
	}
	return fmt.Sprintf("%T: %v\n\n%s", err, err, stack)
}
