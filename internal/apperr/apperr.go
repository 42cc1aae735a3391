package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Code classifies a request failure. The string values double as the
// machine-readable code in JSON error responses.
type Code string

const (
	Unauthenticated    Code = "unauthenticated"
	InvalidArgument    Code = "invalid-argument"
	PermissionDenied   Code = "permission-denied"
	FailedPrecondition Code = "failed-precondition"
	Internal           Code = "internal"
)

// HTTPStatus maps a code to its HTTP response status.
func (c Code) HTTPStatus() int {
	switch c {
	case Unauthenticated:
		return fiber.StatusUnauthorized
	case InvalidArgument:
		return fiber.StatusBadRequest
	case PermissionDenied:
		return fiber.StatusForbidden
	case FailedPrecondition:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// Error is a classified request error. Validation rejections are terminal:
// callers get exactly one of these per attempt and must not retry rejected
// submissions.
type Error struct {
	Code    Code
	Message string
	cause   error
}

// New creates an error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// From extracts the classified error, or wraps unknown errors as Internal so
// storage failures never leak driver details to clients.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(Internal, "internal error", err)
}

// CodeOf returns the code carried by err, or Internal for unclassified errors.
func CodeOf(err error) Code {
	return From(err).Code
}
