package bridge

import (
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/tether/vm"
)

// FunctionPtr identifies a host callback, the way a native function pointer
// would. 0 means "no callback".
type FunctionPtr int32

// Host is the fixed-arity trampoline capability through which the script
// side reaches host code. Each method mirrors one native call shape; the host
// reads arguments and writes the return value through the FrameTable using
// the info pointer.
type Host interface {
	// CallFunction runs a host function or method. self is 0 for free
	// functions and statics.
	CallFunction(fn FunctionPtr, self HostID, info Pointer, argc int, data int64)

	// CallConstructor allocates a host object and returns its id.
	CallConstructor(fn FunctionPtr, info Pointer, argc int, data int64) HostID

	// CallDestructor releases the host object self.
	CallDestructor(fn FunctionPtr, self HostID, data int64)
}

// ---------------------------------------------------------------------------
// Crossings
// ---------------------------------------------------------------------------

// CrossingKind names the shape of a boundary call.
type CrossingKind uint8

const (
	CrossFunction CrossingKind = iota + 1
	CrossConstructor
	CrossDestructor
	CrossScript
)

func (k CrossingKind) String() string {
	switch k {
	case CrossFunction:
		return "function"
	case CrossConstructor:
		return "constructor"
	case CrossDestructor:
		return "destructor"
	case CrossScript:
		return "script"
	}
	return "unknown"
}

// Crossing describes one completed boundary call.
type Crossing struct {
	Kind     CrossingKind
	Function FunctionPtr
	Callable CallableID
	Self     HostID
	Frame    Pointer
	Argc     int
	Data     int64
	Args     []ValueType
	Error    string
	Elapsed  time.Duration
}

// Observer receives every crossing after it completes.
type Observer interface {
	ObserveCrossing(c Crossing)
}

// ---------------------------------------------------------------------------
// Dispatcher
// ---------------------------------------------------------------------------

// Dispatcher drives calls across the boundary in both directions.
type Dispatcher struct {
	host     Host
	frames   *FrameTable
	objects  *ObjectMap
	observer Observer
	onEnter  func()
	depth    int
	log      commonlog.Logger
}

// NewDispatcher creates a dispatcher over the given tables.
func NewDispatcher(host Host, frames *FrameTable, objects *ObjectMap) *Dispatcher {
	return &Dispatcher{
		host:    host,
		frames:  frames,
		objects: objects,
		log:     commonlog.GetLogger("tether.dispatch"),
	}
}

// SetObserver installs o as the crossing observer (nil disables).
func (d *Dispatcher) SetObserver(o Observer) {
	d.observer = o
}

// Depth returns the current boundary nesting depth.
func (d *Dispatcher) Depth() int {
	return d.depth
}

// enter marks a crossing. The outermost crossing runs the onEnter hook
// before any frame is allocated.
func (d *Dispatcher) enter() {
	if d.depth == 0 && d.onEnter != nil {
		d.onEnter()
	}
	d.depth++
}

func (d *Dispatcher) exit() {
	d.depth--
}

func (d *Dispatcher) observe(c Crossing, start time.Time) {
	if d.observer == nil {
		return
	}
	c.Elapsed = time.Since(start)
	d.observer.ObserveCrossing(c)
}

// MakeFunction returns a script function that forwards to host callback fn.
// When invoked on a proxy, the proxy's host id is passed as self.
func (d *Dispatcher) MakeFunction(name string, fn FunctionPtr, data int64) *vm.Function {
	return vm.NewFunction(name, func(self vm.Value, args []vm.Value) (vm.Value, error) {
		return d.CallFunction(name, fn, self, args, data)
	})
}

// CallFunction performs one function-callback crossing.
func (d *Dispatcher) CallFunction(name string, fn FunctionPtr, self vm.Value, args []vm.Value, data int64) (vm.Value, error) {
	d.enter()
	defer d.exit()

	var selfID HostID
	if obj, ok := self.(*vm.Object); ok {
		selfID, _ = d.objects.IDOf(obj)
	}

	start := time.Now()
	p := d.frames.Allocate(args)
	d.host.CallFunction(fn, selfID, p, len(args), data)

	msg := d.frames.FrameOf(p).Exception()
	ret := d.frames.ConsumeReturnValue(p)

	d.observe(Crossing{
		Kind:     CrossFunction,
		Function: fn,
		Self:     selfID,
		Frame:    p,
		Argc:     len(args),
		Data:     data,
		Args:     classifyAll(d.objects, args),
		Error:    msg,
	}, start)

	if msg != "" {
		d.log.Debugf("host function %d (%s) raised: %s", fn, name, msg)
		return nil, &vm.ScriptError{Function: name, Message: msg}
	}
	return ret, nil
}

// Construct asks the host to allocate the backing object for a script-side
// `new`. The frame is released without reading a return value.
func (d *Dispatcher) Construct(fn FunctionPtr, args []vm.Value, data int64) (HostID, error) {
	d.enter()
	defer d.exit()

	start := time.Now()
	p := d.frames.Allocate(args)
	id := d.host.CallConstructor(fn, p, len(args), data)

	msg := d.frames.FrameOf(p).Exception()
	d.frames.Release(p)

	d.observe(Crossing{
		Kind:     CrossConstructor,
		Function: fn,
		Self:     id,
		Frame:    p,
		Argc:     len(args),
		Data:     data,
		Args:     classifyAll(d.objects, args),
		Error:    msg,
	}, start)

	if msg != "" {
		d.log.Debugf("host constructor %d raised: %s", fn, msg)
		return 0, &vm.ScriptError{Function: "constructor", Message: msg}
	}
	return id, nil
}

// Destruct tells the host to release self.
func (d *Dispatcher) Destruct(fn FunctionPtr, self HostID, data int64) {
	d.enter()
	defer d.exit()

	start := time.Now()
	d.host.CallDestructor(fn, self, data)
	d.observe(Crossing{
		Kind:     CrossDestructor,
		Function: fn,
		Self:     self,
		Data:     data,
	}, start)
}

// WrapCallable returns a host-side handle for a script callable. Calling it
// stages the arguments in a fresh frame, invokes the callable, and reads the
// result back out of the frame. A failure of the callable yields undefined
// and is left in the entry's LastError.
func (d *Dispatcher) WrapCallable(e *CallableEntry) func(args ...vm.Value) vm.Value {
	return func(args ...vm.Value) vm.Value {
		d.enter()
		defer d.exit()

		start := time.Now()
		p := d.frames.Allocate(args)
		frame := d.frames.FrameOf(p)
		e.SetArgs(frame.Args())
		frame.SetReturnValue(e.Invoke())
		ret := d.frames.ConsumeReturnValue(p)

		d.observe(Crossing{
			Kind:     CrossScript,
			Callable: e.ID(),
			Frame:    p,
			Argc:     len(args),
			Args:     classifyAll(d.objects, args),
			Error:    e.LastError(),
		}, start)
		return ret
	}
}
