// Package nwscript provides error handling for the NWScript virtual machine.
package nwscript

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of runtime error.
type ErrorType string

const (
	// Dispatch errors - abort the current engine call and halt the script
	ErrorTypeMismatch   ErrorType = "TYPE_MISMATCH"
	ErrorArity          ErrorType = "ARITY"
	ErrorMissingDefault ErrorType = "MISSING_DEFAULT"

	// Unknown functions are routed to a no-op stub and never halt a script
	ErrorUnknownFunction ErrorType = "UNKNOWN_FUNCTION"

	// Precondition failure of assign/delay command
	ErrorInvalidScriptContext ErrorType = "INVALID_SCRIPT_CONTEXT"

	// Corrupt or incompatible bytecode
	ErrorInterpreterFault ErrorType = "INTERPRETER_FAULT"
)

// Sentinels for errors.Is. Any *RuntimeError matches the sentinel of its Type.
var (
	ErrTypeMismatch         = &RuntimeError{Type: ErrorTypeMismatch, Offset: -1}
	ErrArity                = &RuntimeError{Type: ErrorArity, Offset: -1}
	ErrMissingDefault       = &RuntimeError{Type: ErrorMissingDefault, Offset: -1}
	ErrUnknownFunction      = &RuntimeError{Type: ErrorUnknownFunction, Offset: -1}
	ErrInvalidScriptContext = &RuntimeError{Type: ErrorInvalidScriptContext, Offset: -1}
	ErrInterpreterFault     = &RuntimeError{Type: ErrorInterpreterFault, Offset: -1}
)

// RuntimeError represents a runtime error raised while dispatching or
// interpreting a script.
type RuntimeError struct {
	Type    ErrorType
	Message string
	Script  string // Script name if available
	Offset  int    // Bytecode offset if available, -1 otherwise
	Err     error  // Underlying error, if any
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Offset >= 0 && e.Script != "" {
		return fmt.Sprintf("[%s] %s at %s:%08X", e.Type, msg, e.Script, e.Offset)
	}
	if e.Script != "" {
		return fmt.Sprintf("[%s] %s in %s", e.Type, msg, e.Script)
	}
	if e.Offset >= 0 {
		return fmt.Sprintf("[%s] %s at %08X", e.Type, msg, e.Offset)
	}
	return fmt.Sprintf("[%s] %s", e.Type, msg)
}

// Is matches any RuntimeError of the same Type.
func (e *RuntimeError) Is(target error) bool {
	t, ok := target.(*RuntimeError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// Unwrap returns the underlying error.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsFatal returns true if the error halts the current script.
// Unknown functions are deliberately non-fatal.
func (e *RuntimeError) IsFatal() bool {
	return e.Type != ErrorUnknownFunction
}

// NewRuntimeError creates a new RuntimeError.
func NewRuntimeError(errType ErrorType, message string) *RuntimeError {
	return &RuntimeError{
		Type:    errType,
		Message: message,
		Offset:  -1,
	}
}

// NewRuntimeErrorf creates a new RuntimeError with a formatted message.
func NewRuntimeErrorf(errType ErrorType, format string, args ...any) *RuntimeError {
	return NewRuntimeError(errType, fmt.Sprintf(format, args...))
}

// WithLocation returns a copy of the error annotated with script and offset.
// Existing location information is kept.
func WithLocation(err error, script string, offset int) error {
	var re *RuntimeError
	if !errors.As(err, &re) {
		return err
	}
	if re != err {
		// Keep the wrapping context in the message.
		re = &RuntimeError{Type: re.Type, Script: re.Script, Offset: re.Offset, Err: err}
	}
	out := *re
	if out.Script == "" {
		out.Script = script
	}
	if out.Offset < 0 {
		out.Offset = offset
	}
	return &out
}

// Error helper functions for common error types

// NewTypeMismatchError creates a type mismatch error.
func NewTypeMismatchError(want, got Kind) *RuntimeError {
	return NewRuntimeErrorf(ErrorTypeMismatch, "expected %s, got %s", want, got)
}

// NewArityError creates an arity error for a call with too many arguments.
func NewArityError(name string, got, max int) *RuntimeError {
	return NewRuntimeErrorf(ErrorArity, "%s: %d arguments given, at most %d accepted", name, got, max)
}

// NewMissingDefaultError creates an error for an omitted required parameter.
func NewMissingDefaultError(name string, index int) *RuntimeError {
	return NewRuntimeErrorf(ErrorMissingDefault, "%s: parameter %d omitted and has no default", name, index)
}

// NewUnknownFunctionError creates an unknown function error.
func NewUnknownFunctionError(id uint32) *RuntimeError {
	return NewRuntimeErrorf(ErrorUnknownFunction, "no engine function with ID %d", id)
}

// NewInvalidScriptContextError creates the error raised by assign/delay
// commands issued without an originating script.
func NewInvalidScriptContextError(function string) *RuntimeError {
	return NewRuntimeErrorf(ErrorInvalidScriptContext, "%s: script needed", function)
}

// NewInterpreterFault creates a fatal interpreter error.
func NewInterpreterFault(format string, args ...any) *RuntimeError {
	return NewRuntimeErrorf(ErrorInterpreterFault, format, args...)
}
