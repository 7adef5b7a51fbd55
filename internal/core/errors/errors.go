package errors

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeParseError    ErrorCode = "PARSE_ERROR"
	CodeRenderFailed  ErrorCode = "RENDER_FAILED"
	CodeNotAvailable  ErrorCode = "NOT_AVAILABLE"
	CodeInitFailed    ErrorCode = "INIT_FAILED"
	CodeNotConnected  ErrorCode = "NOT_CONNECTED"
	CodeTimeout       ErrorCode = "TIMEOUT"
	CodeWriteError    ErrorCode = "WRITE_ERROR"
	CodeProcessExited ErrorCode = "PROCESS_EXITED"
	CodeInternal      ErrorCode = "INTERNAL_ERROR"
)

type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

const (
	CtxLine     = "line"
	CtxColumn   = "column"
	CtxRenderer = "renderer"
	CtxPipe     = "pipe"
	CtxPath     = "path"
)

func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) > 0 {
		msg += fmt.Sprintf(" %v", e.Context)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, msg string) *DomainError {
	return &DomainError{Code: code, Message: msg}
}

func Wrap(err error, code ErrorCode, msg string) *DomainError {
	return &DomainError{Code: code, Message: msg, Err: err}
}

func AddContext(err error, key string, value interface{}) error {
	var de *DomainError
	if errors.As(err, &de) {
		de.WithContext(key, value)
		return de
	}
	return &DomainError{
		Code:    CodeInternal,
		Message: "wrapped error",
		Err:     err,
		Context: map[string]interface{}{key: value},
	}
}

func IsCode(err error, code ErrorCode) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the domain code carried by err, or CodeInternal for plain errors.
func CodeOf(err error) ErrorCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Retriable reports whether a render may be re-issued after this error.
// Transport-level failures are retriable; a hard init failure is not.
func Retriable(err error) bool {
	switch CodeOf(err) {
	case CodeNotAvailable, CodeNotConnected, CodeTimeout, CodeWriteError, CodeProcessExited:
		return true
	}
	return false
}
