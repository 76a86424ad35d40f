package ir

import (
	"errors"
	"fmt"
)

// Error is the coded error returned across restql's layers.
//
// Every failure a caller can act on carries one of the ErrorCode values
// below. Lower layers wrap causes with %w, so use errors.As or IsCode
// rather than comparing messages.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes errors.
type ErrorCode string

const (
	// ErrCodeParse indicates malformed input text (JSON, query strings, config).
	ErrCodeParse ErrorCode = "PARSE_ERROR"

	// ErrCodeTypeCoercion indicates input that cannot be made into a Value,
	// such as null where a value is required or an out-of-range integer.
	ErrCodeTypeCoercion ErrorCode = "TYPE_COERCION"

	// ErrCodeSQLCompile indicates a descriptor that cannot be rendered as SQL.
	ErrCodeSQLCompile ErrorCode = "SQL_COMPILE"

	// ErrCodeDatabase indicates a failure reported by the database driver.
	ErrCodeDatabase ErrorCode = "DB_ERROR"

	// ErrCodeScriptSandbox indicates a script touched a disabled capability.
	ErrCodeScriptSandbox ErrorCode = "SCRIPT_SANDBOX"

	// ErrCodeScriptRuntime indicates a script raised an error or failed to
	// compile.
	ErrCodeScriptRuntime ErrorCode = "SCRIPT_RUNTIME"

	// ErrCodeEmptyResult indicates an INSERT ... RETURNING produced no row.
	ErrCodeEmptyResult ErrorCode = "EMPTY_RESULT"

	// ErrCodeUnsupported indicates a request shape restql does not serve,
	// such as a batch (array) insert.
	ErrCodeUnsupported ErrorCode = "UNSUPPORTED"

	// ErrCodeQuotaExceeded indicates a script issued more commands than
	// its transaction allows.
	ErrCodeQuotaExceeded ErrorCode = "QUOTA_EXCEEDED"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error with a formatted message.
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates an Error with a formatted message around a cause.
func WrapError(code ErrorCode, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// IsCode reports whether err, or anything it wraps, is an *Error with code.
// The outermost *Error in the chain decides.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// CodeOf returns the code of the outermost *Error in err's chain, or ""
// when there is none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
