package core

import (
	"errors"
	"fmt"
)

// Code classifies an error. Codes 1-6 keep the numbering of the C ABI.
type Code int

const (
	CodeOK Code = iota
	CodeIO
	CodeCorruption
	CodeExecution
	CodeTransaction
	CodeSyntax
	CodeInternal
	CodeSchema
	CodeTypeMismatch
	CodeIndexOutOfRange
	CodeInvalidState
	CodeLockContention
	CodeConfig
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeIO:
		return "io"
	case CodeCorruption:
		return "corruption"
	case CodeExecution:
		return "execution"
	case CodeTransaction:
		return "transaction"
	case CodeSyntax:
		return "syntax"
	case CodeInternal:
		return "internal"
	case CodeSchema:
		return "schema"
	case CodeTypeMismatch:
		return "type mismatch"
	case CodeIndexOutOfRange:
		return "index out of range"
	case CodeInvalidState:
		return "invalid state"
	case CodeLockContention:
		return "lock contention"
	case CodeConfig:
		return "config"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// Retryable reports whether the operation may succeed if simply repeated.
func (c Code) Retryable() bool {
	return c == CodeLockContention
}

// Error is the coded error returned across the public API.
type Error struct {
	Code    Code
	Message string
	SQL     string // statement text, when the error came from one
}

func (e *Error) Error() string {
	return fmt.Sprintf("decentdb error %d: %s", int(e.Code), e.Message)
}

// Is matches any *Error carrying the same code, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrIO              = &Error{Code: CodeIO, Message: "i/o error"}
	ErrCorruption      = &Error{Code: CodeCorruption, Message: "corruption"}
	ErrExecution       = &Error{Code: CodeExecution, Message: "execution error"}
	ErrTransaction     = &Error{Code: CodeTransaction, Message: "transaction error"}
	ErrSyntax          = &Error{Code: CodeSyntax, Message: "syntax error"}
	ErrInternal        = &Error{Code: CodeInternal, Message: "internal error"}
	ErrSchema          = &Error{Code: CodeSchema, Message: "schema error"}
	ErrTypeMismatch    = &Error{Code: CodeTypeMismatch, Message: "type mismatch"}
	ErrIndexOutOfRange = &Error{Code: CodeIndexOutOfRange, Message: "index out of range"}
	ErrInvalidState    = &Error{Code: CodeInvalidState, Message: "invalid state"}
	ErrLockContention  = &Error{Code: CodeLockContention, Message: "lock contention"}
	ErrConfig          = &Error{Code: CodeConfig, Message: "invalid configuration"}
)

// Errorf builds a coded error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap converts err into a coded error. Errors that already carry a code
// keep it; anything else gets the given code and its text as the message.
func Wrap(code Code, err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: code, Message: err.Error()}
}

// CodeOf returns the code carried by err, CodeOK for nil and CodeInternal for
// errors that carry none.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// MessageOf returns the message of a coded error or the text of any other error.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
