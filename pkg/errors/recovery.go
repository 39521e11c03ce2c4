package errors

import (
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog"
)

// PanicError is an error created from a recovered panic. The driver uses it to
// keep a panicking location task from tearing down the whole evaluation.
type PanicError struct {
	// PanicValue is the original value passed to panic()
	PanicValue interface{}

	// StackTrace contains the stack trace at the time of panic
	StackTrace string

	// Operation identifies where the panic was recovered
	Operation string
}

// Error implements the error interface for PanicError.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// Unwrap returns nil as PanicError doesn't wrap another error by default.
func (e *PanicError) Unwrap() error {
	return nil
}

// String provides detailed information including stack trace.
func (e *PanicError) String() string {
	return fmt.Sprintf("panic in %s: %v\nStack trace:\n%s",
		e.Operation, e.PanicValue, e.StackTrace)
}

// MarshalZerologObject adds the panic fields to a zerolog event.
func (e *PanicError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Operation).
		Interface("panic_value", e.PanicValue).
		Str("type", "PanicError")
}

// NewPanicError creates a new PanicError with the given operation context and panic value.
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
		Operation:  operation,
	}
}

// Recover converts a panic into an error. Call it with defer and a pointer to
// the named error result:
//
//	func (d *Driver) evaluate(...) (err error) {
//	    defer Recover(&err, "Driver.evaluate")
//	    ...
//	}
//
// If the function already has an error, the panic information wraps it.
func Recover(err *error, operation string) {
	if r := recover(); r != nil {
		if *err != nil {
			*err = fmt.Errorf("panic in %s: %v (original error: %w)", operation, r, *err)
			return
		}
		*err = NewPanicError(operation, r)
	}
}

// SafeExecute runs fn and converts any panic into a PanicError.
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}
