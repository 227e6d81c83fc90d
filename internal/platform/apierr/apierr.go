package apierr

import (
	"fmt"
	"net/http"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

// Public is the message written to the client. Server-side failures keep their cause
// out of the response.
func (e *Error) Public() string {
	if e == nil {
		return ""
	}
	if e.Status >= http.StatusInternalServerError {
		return "internal error"
	}
	return e.Error()
}

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func BadRequest(code string, err error) *Error {
	return New(http.StatusBadRequest, code, err)
}

// InvalidRequest is a malformed or unbindable request body.
func InvalidRequest(err error) *Error {
	return BadRequest("invalid_request", err)
}

func Unauthorized(err error) *Error {
	return New(http.StatusUnauthorized, "unauthorized", err)
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, "internal", err)
}
