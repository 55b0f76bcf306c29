package common

import (
	"errors"
	"net/http"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// WithDetails attaches structured detail to the error and returns it.
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// BadRequestError builds the 400 variant used across request parsing.
func BadRequestError(message string, err error) *AppError {
	return NewAppError("BAD_REQUEST", message, http.StatusBadRequest, err)
}

// UpstreamStatus reports whether err carries one of the upstream failure
// codes, meaning the inventory service (not this gateway) rejected or failed
// the call.
func UpstreamStatus(err error) (string, bool) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return "", false
	}
	switch appErr.Code {
	case "UPSTREAM", "UPSTREAM_VALIDATION", "UPSTREAM_UNAVAILABLE":
		return appErr.Code, true
	}
	return "", false
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}
