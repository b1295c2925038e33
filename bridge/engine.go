package bridge

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/tether/vm"
)

// DefaultFrameCapacity is the number of frame slots preallocated when no
// capacity is configured.
const DefaultFrameCapacity = 64

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

type engineOptions struct {
	sessionID         string
	frameCapacity     int
	notifier          Notifier
	deferred          bool
	observer          Observer
	generalDestructor FunctionPtr
	log               commonlog.Logger
}

// Option configures an Engine.
type Option func(*engineOptions)

// WithSessionID overrides the generated session id.
func WithSessionID(id string) Option {
	return func(o *engineOptions) {
		o.sessionID = id
	}
}

// WithFrameCapacity preallocates room for n call frames.
func WithFrameCapacity(n int) Option {
	return func(o *engineOptions) {
		o.frameCapacity = n
	}
}

// WithNotifier replaces the collection-notification facility.
func WithNotifier(n Notifier) Option {
	return func(o *engineOptions) {
		o.notifier = n
	}
}

// WithDeferredFinalization selects whether finalization notifications are
// queued until the next outermost boundary crossing (the default) or
// delivered on the notifier's goroutine.
func WithDeferredFinalization(deferred bool) Option {
	return func(o *engineOptions) {
		o.deferred = deferred
	}
}

// WithObserver reports every boundary crossing to obs.
func WithObserver(obs Observer) Option {
	return func(o *engineOptions) {
		o.observer = obs
	}
}

// WithGeneralDestructor sets the destructor used by classes registered
// without their own.
func WithGeneralDestructor(fn FunctionPtr) Option {
	return func(o *engineOptions) {
		o.generalDestructor = fn
	}
}

// WithLogger replaces the engine's session logger.
func WithLogger(log commonlog.Logger) Option {
	return func(o *engineOptions) {
		o.log = log
	}
}

// ---------------------------------------------------------------------------
// Engine
// ---------------------------------------------------------------------------

// Engine owns every table of one host/script session. The tables live as
// long as the session; there is no teardown beyond dropping the Engine.
type Engine struct {
	Frames       *FrameTable
	Callables    *CallableRegistry
	Objects      *ObjectMap
	Finalization *FinalizationBridge
	Dispatcher   *Dispatcher
	Globals      *vm.Globals

	id                string
	generalDestructor FunctionPtr
	log               commonlog.Logger
}

// NewEngine creates a session bound to host.
func NewEngine(host Host, opts ...Option) *Engine {
	o := engineOptions{
		frameCapacity: DefaultFrameCapacity,
		deferred:      true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sessionID == "" {
		o.sessionID = uuid.New().String()
	}
	if o.log == nil {
		o.log = commonlog.GetLogger("tether.engine")
	}

	frames := NewFrameTable(o.frameCapacity)
	objects := NewObjectMap()
	e := &Engine{
		Frames:            frames,
		Callables:         NewCallableRegistry(),
		Objects:           objects,
		Finalization:      NewFinalizationBridge(o.notifier, o.deferred),
		Dispatcher:        NewDispatcher(host, frames, objects),
		Globals:           vm.NewGlobals(),
		id:                o.sessionID,
		generalDestructor: o.generalDestructor,
		log:               o.log,
	}
	e.Dispatcher.SetObserver(o.observer)
	e.Dispatcher.onEnter = func() {
		e.Finalization.Drain()
	}

	e.log.Infof("session %s started (frame capacity %d, deferred finalization %t)",
		e.id, o.frameCapacity, o.deferred)
	return e
}

// ID returns the session id.
func (e *Engine) ID() string {
	return e.id
}

// GeneralDestructor returns the fallback destructor callback.
func (e *Engine) GeneralDestructor() FunctionPtr {
	return e.generalDestructor
}

// SetGeneralDestructor replaces the fallback destructor callback.
func (e *Engine) SetGeneralDestructor(fn FunctionPtr) {
	e.generalDestructor = fn
}

// New performs a script-side `new` of classID.
func (e *Engine) New(classID ClassID, args ...vm.Value) (*vm.Object, error) {
	d, ok := e.Objects.Class(classID)
	if !ok {
		return nil, fmt.Errorf("new: class %d: %w", classID, ErrUnknownClass)
	}
	return d.New(args...)
}

// ObjectFor returns the proxy for a host object the host is handing to the
// script side, reviving it through classID when needed.
func (e *Engine) ObjectFor(id HostID, classID ClassID) *vm.Object {
	return e.Objects.FindOrRevive(id, classID)
}

// Dispose releases obj's host object now instead of waiting for collection,
// and unbinds its id. obj stays usable as a plain script object; host methods
// called on it receive self 0.
func (e *Engine) Dispose(obj *vm.Object) error {
	id, ok := e.Objects.IDOf(obj)
	if !ok {
		return errors.New("dispose: object is not a host proxy")
	}
	if !e.Finalization.Dispose(id) {
		return fmt.Errorf("dispose: host object %d already released", id)
	}
	e.Objects.Unbind(id)
	return nil
}

// ResolveCallable returns the stable id for fn.
func (e *Engine) ResolveCallable(fn *vm.Function) CallableID {
	return e.Callables.Resolve(fn)
}

// Callable returns a host-side handle for callable id, or nil if unknown.
func (e *Engine) Callable(id CallableID) func(args ...vm.Value) vm.Value {
	entry := e.Callables.ByID(id)
	if entry == nil {
		return nil
	}
	return e.Dispatcher.WrapCallable(entry)
}

// CallScript invokes callable id from the host side and returns its result
// together with the failure it recorded, if any. Calling an id the script
// side never handed out is a protocol violation.
func (e *Engine) CallScript(id CallableID, args ...vm.Value) (vm.Value, string) {
	entry := e.Callables.ByID(id)
	if entry == nil {
		violation("CallScript", "unknown callable %d", id)
	}
	ret := e.Dispatcher.WrapCallable(entry)(args...)
	return ret, entry.LastError()
}

// ForgetCallable drops callable id once the host no longer references it.
func (e *Engine) ForgetCallable(id CallableID) {
	e.Callables.Forget(id)
}

// DrainFinalizations delivers queued finalization notifications now.
func (e *Engine) DrainFinalizations() int {
	return e.Finalization.Drain()
}

// TypeOf classifies v for marshaling.
func (e *Engine) TypeOf(v vm.Value) ValueType {
	return classify(e.Objects, v)
}

// Global returns a global binding.
func (e *Engine) Global(name string) (vm.Value, bool) {
	return e.Globals.Get(name)
}
