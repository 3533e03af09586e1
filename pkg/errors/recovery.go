// Package errors provides comprehensive error handling utilities for cytoprof.
//
// This file contains panic recovery utilities that convert panics raised by
// the numerical backend (for example gonum's shape checks) into structured
// errors with debugging information.

package errors

import (
	"fmt"
	"runtime/debug"
)

// PanicError represents an error that was created from a recovered panic.
// It includes the original panic value and stack trace information.
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

// Unwrap returns the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.PanicValue.(error); ok {
		return err
	}
	return nil
}

// String provides detailed information including stack trace.
func (e *PanicError) String() string {
	return fmt.Sprintf("panic in %s: %v\nStack trace:\n%s",
		e.Operation, e.PanicValue, e.StackTrace)
}

// NewPanicError creates a new PanicError with the given operation context and panic value.
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
		Operation:  operation,
	}
}

// Recover is a utility function to be used with defer to recover from panics
// and convert them into errors.
//
// Usage:
//
//	func SomeMethod() (err error) {
//	    defer Recover(&err, "SomeMethod")
//	    // ... method implementation ...
//	    return nil
//	}
//
// Assertion failures created with AssertionFailedf signal bugs rather than bad
// input and are re-panicked instead of being converted.
func Recover(err *error, operation string) {
	r := recover()
	if r == nil {
		return
	}
	if e, ok := r.(error); ok && IsAssertionFailure(e) {
		panic(r)
	}

	if *err != nil {
		*err = fmt.Errorf("panic in %s: %v (original error: %w)", operation, r, *err)
		return
	}
	*err = NewPanicError(operation, r)
}

// SafeExecute executes a function and recovers from any panic, converting it to an error.
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}
