package utils

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// PanicError wraps a recovered panic value as an error
type PanicError struct {
	Value      interface{}
	StackTrace string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func newPanicError(r interface{}) *PanicError {
	stack := string(debug.Stack())
	slog.Error("Recovered from panic", "panic", r, "stack", stack)
	return &PanicError{Value: r, StackTrace: stack}
}

// RecoverAsError recovers from a panic and stores it in *errPtr.
// It must be deferred directly.
//
// Example:
//
//	func search() (err error) {
//	    defer RecoverAsError(&err)
//	    // ... code that might panic
//	}
func RecoverAsError(errPtr *error) {
	if r := recover(); r != nil {
		*errPtr = newPanicError(r)
	}
}

// RecoverWithCallback recovers from a panic and passes the error to callback.
// It must be deferred directly.
func RecoverWithCallback(callback func(error)) {
	if r := recover(); r != nil {
		err := newPanicError(r)
		if callback != nil {
			callback(err)
		}
	}
}

// SafeGo runs fn in a goroutine. A panic is recovered and passed to onError.
func SafeGo(fn func(), onError func(error)) {
	go func() {
		defer RecoverWithCallback(onError)
		fn()
	}()
}
