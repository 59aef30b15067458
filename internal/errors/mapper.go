package errors

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"
)

// Business-rule sentinels returned by the service layer. The route layer
// translates them to a JSON envelope and a 4xx status.
var (
	ErrNotFound   = errors.New("record not found")
	ErrDuplicate  = errors.New("already exists")
	ErrForbidden  = errors.New("not allowed")
	ErrValidation = errors.New("invalid input")
)

// Validation wraps a user-facing validation message.
func Validation(msg string) error {
	return &statusError{status: http.StatusBadRequest, msg: msg, base: ErrValidation}
}

// NotFound wraps a user-facing not-found message.
func NotFound(msg string) error {
	return &statusError{status: http.StatusNotFound, msg: msg, base: ErrNotFound}
}

// Forbidden wraps a user-facing authorization message.
func Forbidden(msg string) error {
	return &statusError{status: http.StatusForbidden, msg: msg, base: ErrForbidden}
}

// Duplicate wraps a user-facing conflict message.
func Duplicate(msg string) error {
	return &statusError{status: http.StatusBadRequest, msg: msg, base: ErrDuplicate}
}

type statusError struct {
	status int
	msg    string
	base   error
}

func (e *statusError) Error() string { return e.msg }
func (e *statusError) Unwrap() error { return e.base }

// HTTPStatus converts repo/infra/service errors into an HTTP status and a
// client-safe message. Unexpected errors collapse to a generic 500 so no
// internal detail leaks to the client.
func HTTPStatus(err error) (int, string) {
	if err == nil {
		return http.StatusOK, ""
	}

	var se *statusError
	if errors.As(err, &se) {
		return se.status, se.msg
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "record not found"

	case errors.Is(err, ErrValidation), errors.Is(err, ErrDuplicate):
		return http.StatusBadRequest, err.Error()

	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, err.Error()

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"

	case errors.Is(err, context.Canceled):
		return http.StatusBadRequest, "request was canceled"

	default:
		return http.StatusInternalServerError, "une erreur est survenue"
	}
}

// IsUniqueViolation reports whether err is a database unique-constraint
// rejection. GORM surfaces ErrDuplicatedKey for translated dialects; the
// string checks cover the mysql and sqlite drivers in use.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "Duplicate entry") ||
		strings.Contains(s, "UNIQUE constraint failed") ||
		strings.Contains(s, "duplicate key")
}
