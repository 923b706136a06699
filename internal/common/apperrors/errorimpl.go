package apperrors

import (
	"errors"
	"strings"
)

// appError is the concrete implementation behind Error.
type appError struct {
	msg           string
	base          error   // template error, checked by errors.Is
	wrappedErrors []error // additional attached errors
	statuscode    int
	expandError   bool
}

func (e *appError) Error() string {
	return e.msg
}

// ErrorAll returns the message followed by all wrapped errors when expansion
// is enabled. Otherwise it is identical to Error().
func (e *appError) ErrorAll() string {
	if !e.expandError {
		return e.Error()
	}
	var b strings.Builder
	b.WriteString(e.Error())
	for _, err := range e.wrappedErrors {
		b.WriteString("; ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *appError) Unwrap() error {
	return e.base
}

func (e *appError) UnwrapAll() []error {
	return e.wrappedErrors
}

// New derives a fresh error kind from the current one. The derived error
// inherits the status code and matches the current error via errors.Is.
func (e *appError) New(msg string) Error {
	return &appError{
		msg:        msg,
		base:       e,
		statuscode: e.statuscode,
	}
}

// Msg derives an error with a new message and wraps the current error.
func (e *appError) Msg(msg string) Error {
	return &appError{
		msg:           msg,
		base:          e,
		wrappedErrors: append([]error{e}, e.wrappedErrors...),
		statuscode:    e.statuscode,
		expandError:   e.expandError,
	}
}

// MsgErr derives an error with a new message and attaches extra errors.
func (e *appError) MsgErr(msg string, errs ...error) Error {
	return &appError{
		msg:           msg,
		base:          e,
		wrappedErrors: append([]error{e}, errs...),
		statuscode:    e.statuscode,
		expandError:   e.expandError,
	}
}

// Err attaches additional errors while keeping the current message.
func (e *appError) Err(errs ...error) Error {
	return &appError{
		msg:           e.msg,
		base:          e,
		wrappedErrors: append([]error{e}, errs...),
		statuscode:    e.statuscode,
		expandError:   e.expandError,
	}
}

// SetExpandError returns a copy with the expansion flag updated.
func (e *appError) SetExpandError(flag bool) Error {
	cp := *e
	cp.expandError = flag
	return &cp
}

// SetStatusCode returns a copy with the status code updated.
func (e *appError) SetStatusCode(code int) Error {
	cp := *e
	cp.statuscode = code
	return &cp
}

func (e *appError) StatusCode() int {
	return e.statuscode
}

// Is matches the target against the template chain and all wrapped errors.
func (e *appError) Is(target error) bool {
	if target == nil {
		return false
	}
	if errors.Is(e.base, target) {
		return true
	}
	for _, err := range e.wrappedErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// New creates a root error with the given message. Root errors have no status
// code until SetStatusCode is called.
func New(msg string) Error {
	return &appError{
		msg: msg,
	}
}
