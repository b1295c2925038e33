package host

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/chazu/tether/bridge"
)

// ---------------------------------------------------------------------------
// Callback signatures
// ---------------------------------------------------------------------------

// Function is a native function or method body.
type Function func(c *Call)

// Constructor builds the Go value backing a new host object. Returning an
// error raises it on the script side.
type Constructor func(c *Call) (any, error)

// Destructor releases the Go value of a host object. The object has already
// been removed from the runtime when it runs.
type Destructor func(id bridge.HostID, value any)

type callbackKind uint8

const (
	kindFunction callbackKind = iota + 1
	kindConstructor
	kindDestructor
)

type callback struct {
	name        string
	kind        callbackKind
	function    Function
	constructor Constructor
	destructor  Destructor
}

// ---------------------------------------------------------------------------
// Runtime: the host side of a session
// ---------------------------------------------------------------------------

// Runtime is an in-memory host. It owns Go values by host id and a table of
// native callbacks addressed by bridge.FunctionPtr, and implements
// bridge.Host so an Engine can call into it.
type Runtime struct {
	mu        sync.Mutex
	engine    *bridge.Engine
	callbacks []*callback // index is the FunctionPtr; slot 0 unused
	objects   map[bridge.HostID]any
	nextID    bridge.HostID
	destroyed []bridge.HostID
	log       commonlog.Logger
}

// NewRuntime creates a runtime with no callbacks and no objects.
func NewRuntime() *Runtime {
	return &Runtime{
		callbacks: []*callback{nil},
		objects:   make(map[bridge.HostID]any),
		log:       commonlog.GetLogger("tether.host"),
	}
}

// Start creates the engine for this runtime. The runtime's default
// destructor is installed as the general destructor unless opts override it.
func (r *Runtime) Start(opts ...bridge.Option) *bridge.Engine {
	dtor := r.RegisterDestructor("drop", nil)
	opts = append([]bridge.Option{bridge.WithGeneralDestructor(dtor)}, opts...)
	e := bridge.NewEngine(r, opts...)

	r.mu.Lock()
	r.engine = e
	r.mu.Unlock()
	return e
}

// Engine returns the engine started for this runtime, or nil.
func (r *Runtime) Engine() *bridge.Engine {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engine
}

func (r *Runtime) register(cb *callback) bridge.FunctionPtr {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, cb)
	return bridge.FunctionPtr(len(r.callbacks) - 1)
}

// RegisterFunction adds a native function and returns its pointer.
func (r *Runtime) RegisterFunction(name string, fn Function) bridge.FunctionPtr {
	return r.register(&callback{name: name, kind: kindFunction, function: fn})
}

// RegisterConstructor adds a native constructor and returns its pointer.
func (r *Runtime) RegisterConstructor(name string, ctor Constructor) bridge.FunctionPtr {
	return r.register(&callback{name: name, kind: kindConstructor, constructor: ctor})
}

// RegisterDestructor adds a native destructor and returns its pointer. A nil
// destructor only drops the object.
func (r *Runtime) RegisterDestructor(name string, dtor Destructor) bridge.FunctionPtr {
	return r.register(&callback{name: name, kind: kindDestructor, destructor: dtor})
}

func (r *Runtime) lookup(fn bridge.FunctionPtr, kind callbackKind) (*callback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fn <= 0 || int(fn) >= len(r.callbacks) {
		return nil, fmt.Errorf("no native callback %d", fn)
	}
	cb := r.callbacks[fn]
	if cb.kind != kind {
		return nil, fmt.Errorf("native callback %d (%s) has the wrong shape", fn, cb.name)
	}
	return cb, nil
}

// ---------------------------------------------------------------------------
// Objects
// ---------------------------------------------------------------------------

// Put stores value as a new host object and returns its id.
func (r *Runtime) Put(value any) bridge.HostID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.objects[r.nextID] = value
	return r.nextID
}

// Value returns the Go value of host object id.
func (r *Runtime) Value(id bridge.HostID) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.objects[id]
	return v, ok
}

// Replace overwrites the Go value of a live host object.
func (r *Runtime) Replace(id bridge.HostID, value any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.objects[id]; !ok {
		return false
	}
	r.objects[id] = value
	return true
}

// Release deletes host object id on the host's own initiative and tells the
// engine the id is no longer valid.
func (r *Runtime) Release(id bridge.HostID) {
	r.mu.Lock()
	delete(r.objects, id)
	e := r.engine
	r.mu.Unlock()

	if e != nil {
		e.Objects.Unbind(id)
	}
}

// Live returns the number of host objects.
func (r *Runtime) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.objects)
}

// IDs returns the live host ids in ascending order.
func (r *Runtime) IDs() []bridge.HostID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]bridge.HostID, 0, len(r.objects))
	for id := range r.objects {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Destroyed returns the ids released through destructor callbacks, in order.
func (r *Runtime) Destroyed() []bridge.HostID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bridge.HostID(nil), r.destroyed...)
}

// ---------------------------------------------------------------------------
// bridge.Host
// ---------------------------------------------------------------------------

func (r *Runtime) CallFunction(fn bridge.FunctionPtr, self bridge.HostID, info bridge.Pointer, argc int, data int64) {
	c := r.newCall(self, info, argc, data)
	cb, err := r.lookup(fn, kindFunction)
	if err != nil {
		c.Throw(err.Error())
		return
	}
	cb.function(c)
}

func (r *Runtime) CallConstructor(fn bridge.FunctionPtr, info bridge.Pointer, argc int, data int64) bridge.HostID {
	c := r.newCall(0, info, argc, data)
	cb, err := r.lookup(fn, kindConstructor)
	if err != nil {
		c.Throw(err.Error())
		return 0
	}
	value, err := cb.constructor(c)
	if err != nil {
		c.Throw(err.Error())
		return 0
	}
	return r.Put(value)
}

func (r *Runtime) CallDestructor(fn bridge.FunctionPtr, self bridge.HostID, data int64) {
	r.mu.Lock()
	value, ok := r.objects[self]
	delete(r.objects, self)
	r.destroyed = append(r.destroyed, self)
	r.mu.Unlock()

	if !ok {
		r.log.Warningf("destructor for unknown host object %d", self)
		return
	}
	cb, err := r.lookup(fn, kindDestructor)
	if err != nil {
		r.log.Errorf("host object %d: %s", self, err.Error())
		return
	}
	if cb.destructor != nil {
		cb.destructor(self, value)
	}
}
