package vm

import (
	"fmt"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// Function: an identity-bearing script callable
// ---------------------------------------------------------------------------

// NativeFunc is the Go body of a script function. self is the receiver the
// function was invoked on (nil for free functions and statics).
type NativeFunc func(self Value, args []Value) (Value, error)

// Function is a script-side callable. Two Functions wrapping the same Go body
// are still distinct callables: identity is the *Function pointer.
type Function struct {
	name  string
	body  NativeFunc
	calls atomic.Uint64
}

// NewFunction creates a named script function.
func NewFunction(name string, body NativeFunc) *Function {
	return &Function{name: name, body: body}
}

// Name returns the function name.
func (f *Function) Name() string {
	return f.name
}

// Calls returns how many times the function has been invoked.
func (f *Function) Calls() uint64 {
	return f.calls.Load()
}

// Call invokes the function with the given receiver and arguments.
func (f *Function) Call(self Value, args ...Value) (Value, error) {
	if f == nil || f.body == nil {
		return nil, fmt.Errorf("call of nil function")
	}
	f.calls.Add(1)
	return f.body(self, args)
}

// String implements fmt.Stringer.
func (f *Function) String() string {
	return "function " + f.name
}

// ---------------------------------------------------------------------------
// ScriptError: a failure raised by script code
// ---------------------------------------------------------------------------

// ScriptError is raised when a script-side call fails, either in script code
// or because the host reported an exception for the call.
type ScriptError struct {
	Function string
	Message  string
}

func (e *ScriptError) Error() string {
	if e.Function == "" {
		return e.Message
	}
	return e.Function + ": " + e.Message
}
