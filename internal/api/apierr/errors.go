// Package apierr converts service errors into JSON HTTP errors.
package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/balkashynov/hourly/internal/db"
	"github.com/balkashynov/hourly/internal/export"
	"github.com/balkashynov/hourly/internal/invoice"
	"github.com/balkashynov/hourly/internal/logger"
	"github.com/balkashynov/hourly/internal/permissions"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Errors  []db.Violation `json:"errors,omitempty"`
}

// ErrorMessage is carried by *echo.HTTPError until the error handler writes it.
type ErrorMessage struct {
	Message string
	Errors  []db.Violation
	Cause   error
}

func (e ErrorMessage) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause)
	}
	return e.Message
}

func (e ErrorMessage) Unwrap() error {
	return e.Cause
}

// New builds an HTTP error with a message and an optional cause.
func New(code int, message string, cause error) *echo.HTTPError {
	msg := ErrorMessage{Message: message, Cause: cause}
	return echo.NewHTTPError(code, msg).SetInternal(msg)
}

func NotFound() *echo.HTTPError {
	return New(http.StatusNotFound, "not found", nil)
}

func Forbidden() *echo.HTTPError {
	return New(http.StatusForbidden, "access denied", permissions.ErrAccessDenied)
}

func BadRequest(message string, cause error) *echo.HTTPError {
	return New(http.StatusBadRequest, message, cause)
}

func InternalServerError(err error) *echo.HTTPError {
	return New(http.StatusInternalServerError, "unexpected error", err)
}

// From maps err onto a status code. HTTP errors pass through unchanged.
func From(err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	var verr *db.ValidationError
	switch {
	case errors.As(err, &verr):
		msg := ErrorMessage{Message: "validation failed", Errors: verr.Violations, Cause: err}
		return echo.NewHTTPError(http.StatusBadRequest, msg).SetInternal(msg)
	case errors.Is(err, db.ErrValidation):
		return BadRequest("validation failed", err)
	case errors.Is(err, db.ErrNotFound):
		return New(http.StatusNotFound, "not found", err)
	case errors.Is(err, db.ErrConflict):
		return New(http.StatusConflict, err.Error(), err)
	case errors.Is(err, db.ErrInvalidCredentials):
		return New(http.StatusUnauthorized, "invalid credentials", err)
	case errors.Is(err, permissions.ErrAccessDenied):
		return Forbidden()
	case errors.Is(err, export.ErrUnknownFormat), errors.Is(err, invoice.ErrUnknownRenderer):
		return BadRequest(err.Error(), err)
	}
	return InternalServerError(err)
}

// Handler writes every error as ErrorResponse and logs server side failures.
func Handler(log *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		he := From(err)
		body := ErrorResponse{Code: he.Code}
		switch m := he.Message.(type) {
		case ErrorMessage:
			body.Message = m.Message
			body.Errors = m.Errors
		case string:
			body.Message = m
		default:
			body.Message = http.StatusText(he.Code)
		}
		if he.Code >= http.StatusInternalServerError {
			log.Errorw("request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(he.Code)
		} else {
			err = c.JSON(he.Code, body)
		}
		if err != nil {
			log.Errorw("failed to write error response", "error", err)
		}
	}
}
