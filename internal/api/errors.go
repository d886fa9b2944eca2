package api

import (
	"fmt"
	"net/http"
	"strings"
)

type ApiError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *ApiError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}

	return e.Message
}

func (e *ApiError) Unwrap() error {
	return e.Err
}

func lower(s string) string {
	return strings.ToLower(s)
}

func newApiError(status int, msg string) *ApiError {
	if msg == "" {
		msg = lower(http.StatusText(status))
	}

	return &ApiError{
		StatusCode: status,
		Message:    msg,
	}
}

// NewValidationError reports malformed or missing input.
func NewValidationError(msg string) *ApiError {
	return newApiError(http.StatusBadRequest, msg)
}

// NewConflictError reports a request the current state already satisfies.
// It answers 400 like every other client mistake.
func NewConflictError(msg string) *ApiError {
	return newApiError(http.StatusBadRequest, msg)
}

func NewAuthenticationError(msg string) *ApiError {
	return newApiError(http.StatusUnauthorized, msg)
}

func NewForbiddenError(msg string) *ApiError {
	return newApiError(http.StatusForbidden, msg)
}

func NewNotFoundError(msg string) *ApiError {
	return newApiError(http.StatusNotFound, msg)
}

// NewInternalServerError keeps err for logging only; the client sees the
// generic status text.
func NewInternalServerError(err error) *ApiError {
	return &ApiError{
		StatusCode: http.StatusInternalServerError,
		Message:    lower(http.StatusText(http.StatusInternalServerError)),
		Err:        err,
	}
}
