package errors

import (
	stderrors "errors"
	"fmt"
)

// Codes classify failures so callers can decide what to swallow.
const (
	CodeParse      = "PARSE_ERROR"
	CodeStructural = "STRUCTURAL_ERROR"
	CodeProcess    = "PROCESS_ERROR"
	CodeIO         = "IO_ERROR"
)

type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s - %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any error in err's chain carries the given code.
func HasCode(err error, code string) bool {
	var e *Error
	for err != nil {
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Err
	}
	return false
}

func IsParse(err error) bool      { return HasCode(err, CodeParse) }
func IsStructural(err error) bool { return HasCode(err, CodeStructural) }
func IsProcess(err error) bool    { return HasCode(err, CodeProcess) }
func IsIO(err error) bool         { return HasCode(err, CodeIO) }
