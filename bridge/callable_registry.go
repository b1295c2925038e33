package bridge

import (
	"fmt"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/chazu/tether/vm"
)

// CallableID is the stable id a script callable carries across the boundary.
// 0 means "no callable".
type CallableID int32

// ---------------------------------------------------------------------------
// CallableEntry: one script callable known to the host
// ---------------------------------------------------------------------------

// CallableEntry pairs a script function with its id, the argument buffer of
// the next pending invocation, and the error of the last invocation.
type CallableEntry struct {
	id        CallableID
	fn        *vm.Function
	pending   []vm.Value
	lastError string
	log       commonlog.Logger
}

// ID returns the entry's callable id.
func (e *CallableEntry) ID() CallableID {
	if e == nil {
		return 0
	}
	return e.id
}

// Function returns the underlying script function.
func (e *CallableEntry) Function() *vm.Function {
	return e.fn
}

// PushArg appends v to the pending argument buffer.
func (e *CallableEntry) PushArg(v vm.Value) {
	e.pending = append(e.pending, v)
}

// SetArgs replaces the pending argument buffer.
func (e *CallableEntry) SetArgs(args []vm.Value) {
	e.pending = append(e.pending[:0:0], args...)
}

// PendingArgs returns a copy of the pending argument buffer.
func (e *CallableEntry) PendingArgs() []vm.Value {
	return append([]vm.Value(nil), e.pending...)
}

// LastError returns the failure recorded by the most recent Invoke, or "".
func (e *CallableEntry) LastError() string {
	return e.lastError
}

// Invoke calls the function with the pending arguments. The buffer is
// cleared before the call so a reentrant invocation starts empty. A failure
// is recorded as LastError and yields undefined; it never escapes across the
// boundary. Protocol violations are not failures of the callable and keep
// propagating.
func (e *CallableEntry) Invoke() (result vm.Value) {
	args := e.pending
	e.pending = nil
	e.lastError = ""

	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(*ProtocolError); ok {
				panic(r)
			}
			e.lastError = fmt.Sprint(r)
			e.log.Warningf("callable %d (%s) panicked: %s", e.id, e.fn.Name(), e.lastError)
			result = vm.Undefined
		}
	}()

	ret, err := e.fn.Call(nil, args...)
	if err != nil {
		e.lastError = err.Error()
		e.log.Debugf("callable %d (%s) failed: %s", e.id, e.fn.Name(), e.lastError)
		return vm.Undefined
	}
	return ret
}

// ---------------------------------------------------------------------------
// CallableRegistry: identity map for script callables
// ---------------------------------------------------------------------------

// CallableRegistry gives every script callable that crosses the boundary a
// stable id. Lookup is by pointer identity: two distinct *vm.Function values
// get distinct ids even if they wrap the same Go body.
type CallableRegistry struct {
	mu     sync.RWMutex
	byID   map[CallableID]*CallableEntry
	byFunc map[*vm.Function]CallableID
	nextID CallableID
	log    commonlog.Logger
}

// NewCallableRegistry creates an empty registry. Ids start at 1.
func NewCallableRegistry() *CallableRegistry {
	return &CallableRegistry{
		byID:   make(map[CallableID]*CallableEntry),
		byFunc: make(map[*vm.Function]CallableID),
		nextID: 1,
		log:    commonlog.GetLogger("tether.callables"),
	}
}

// Resolve returns fn's id, assigning the next one on first sight.
func (r *CallableRegistry) Resolve(fn *vm.Function) CallableID {
	return r.Entry(fn).ID()
}

// Entry returns fn's entry, creating it on first sight. A nil fn yields a
// nil entry whose ID is 0.
func (r *CallableRegistry) Entry(fn *vm.Function) *CallableEntry {
	if fn == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byFunc[fn]; ok {
		return r.byID[id]
	}

	id := r.nextID
	r.nextID++
	e := &CallableEntry{id: id, fn: fn, log: r.log}
	r.byID[id] = e
	r.byFunc[fn] = id
	return e
}

// ByID returns the entry for id, or nil if it is unknown or forgotten.
func (r *CallableRegistry) ByID(id CallableID) *CallableEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

// Forget removes both directions of id's mapping. The function gets a new id
// if it crosses the boundary again.
func (r *CallableRegistry) Forget(id CallableID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byFunc, e.fn)
	delete(r.byID, id)
}

// Count returns the number of registered callables.
func (r *CallableRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
