package aggregates

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies a failed family or growth write. HTTP status, hook status
// and retry decisions all key off it.
type ErrorCode string

const (
	CodeValidation         ErrorCode = "validation"
	CodeNotFound           ErrorCode = "not_found"
	CodeConflict           ErrorCode = "conflict"
	CodeInvariantViolation ErrorCode = "invariant_violation"
	CodePreconditionFailed ErrorCode = "precondition_failed"
	CodeForbidden          ErrorCode = "forbidden"
	CodeRetryable          ErrorCode = "retryable"
	CodeInternal           ErrorCode = "internal"
)

// Error carries a code, the operation that failed (for example "Growth.Plant.Create")
// and an optional cause reachable with errors.Is.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString(string(e.Code))
		return b.String()
	}
	fmt.Fprintf(&b, " [%s]", e.Code)
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Public is the message safe to show a caller. Internal and invariant failures never
// expose their detail; retryable ones get a fixed hint.
func (e *Error) Public() string {
	if e == nil {
		return ""
	}
	switch e.Code {
	case CodeInternal, CodeInvariantViolation:
		return "internal error"
	case CodeRetryable:
		return "temporarily unavailable, retry later"
	}
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

// WithOp returns a copy of e attributed to op, unless e already names one.
func (e *Error) WithOp(op string) *Error {
	if e == nil || e.Op != "" || strings.TrimSpace(op) == "" {
		return e
	}
	cp := *e
	cp.Op = strings.TrimSpace(op)
	return &cp
}

func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap codes err, keeping its text as the message.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// CodeOf returns the code of the outermost *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return ""
	}
	return aggErr.Code
}

// Retryable reports whether repeating the same write may succeed.
func Retryable(err error) bool {
	return IsCode(err, CodeRetryable)
}
