// Package apierror converts service errors into echo HTTP errors.
package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// StatusCoder is implemented by domain errors that know their HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// ValidationError rejects malformed client input with a 400.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string   { return e.msg }
func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }

// Invalid builds a ValidationError.
func Invalid(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// From maps err to an *echo.HTTPError. Errors carrying a status code keep it
// and *echo.HTTPError passes through. Anything else is an unexpected failure
// and is reported as a 500 without its text.
func From(err error) error {
	if err == nil {
		return nil
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		return echo.NewHTTPError(sc.StatusCode(), err.Error()).SetInternal(err)
	}
	return Internal(err)
}

// Internal reports an unexpected failure without echoing its text.
func Internal(err error) error {
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
}
