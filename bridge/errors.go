package bridge

import (
	"errors"
	"fmt"
)

// ErrUnknownClass is returned when a registration names a class id that was
// never registered. It signals an ordering mistake in the caller, not a
// corrupted bridge.
var ErrUnknownClass = errors.New("unknown class id")

// ProtocolError reports a broken invariant between the two runtimes: a
// recycled synthetic pointer was read, a finalizer fired without a record, a
// released host id was revived. The bridge panics with a *ProtocolError
// instead of returning one; continuing would silently corrupt identity.
type ProtocolError struct {
	Op     string
	Detail string
}

func (e *ProtocolError) Error() string {
	return "bridge protocol violation in " + e.Op + ": " + e.Detail
}

// violation panics with a ProtocolError.
func violation(op, format string, args ...any) {
	panic(&ProtocolError{Op: op, Detail: fmt.Sprintf(format, args...)})
}

// Catch runs fn and converts a protocol-violation panic into an error. Any
// other panic is propagated unchanged. Use it at outer edges (CLI, tests);
// inside the bridge violations must stay loud.
func Catch(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(*ProtocolError); ok {
				err = pe
				return
			}
			panic(r)
		}
	}()
	fn()
	return nil
}
