package vm

import "weak"

// ---------------------------------------------------------------------------
// WeakReference: A reference that doesn't prevent garbage collection
// ---------------------------------------------------------------------------

// WeakReference holds a weak reference to an object. Once the Go collector
// reclaims the target, Get returns nil. WeakReferences made from the same
// object compare equal, so they can key maps without keeping the object alive.
type WeakReference struct {
	ptr weak.Pointer[Object]
}

// NewWeakReference creates a weak reference to target.
func NewWeakReference(target *Object) WeakReference {
	return WeakReference{ptr: weak.Make(target)}
}

// Get returns the target object, or nil if it has been collected.
func (wr WeakReference) Get() *Object {
	return wr.ptr.Value()
}

// IsAlive returns true if the target object has not been collected.
func (wr WeakReference) IsAlive() bool {
	return wr.ptr.Value() != nil
}
