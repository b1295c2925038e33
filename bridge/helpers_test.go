package bridge

import (
	"sync"
	"testing"

	"github.com/chazu/tether/vm"
)

// mustViolate fails the test unless fn panics with a *ProtocolError.
func mustViolate(t *testing.T, fn func()) *ProtocolError {
	t.Helper()
	err := Catch(fn)
	if err == nil {
		t.Fatal("expected a protocol violation, got none")
	}
	pe, ok := err.(*ProtocolError)
	if !ok {
		t.Fatalf("expected *ProtocolError, got %T", err)
	}
	return pe
}

// ---------------------------------------------------------------------------
// manualNotifier: collection notifications under test control
// ---------------------------------------------------------------------------

type watch struct {
	id     HostID
	notify func(HostID)
}

type manualNotifier struct {
	mu      sync.Mutex
	watched []watch
}

func (n *manualNotifier) Watch(_ *vm.Object, id HostID, notify func(HostID)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.watched = append(n.watched, watch{id: id, notify: notify})
}

// collect delivers the oldest outstanding notification for id.
func (n *manualNotifier) collect(t *testing.T, id HostID) {
	t.Helper()
	n.mu.Lock()
	for i, w := range n.watched {
		if w.id == id {
			n.watched = append(n.watched[:i], n.watched[i+1:]...)
			n.mu.Unlock()
			w.notify(id)
			return
		}
	}
	n.mu.Unlock()
	t.Fatalf("no outstanding watch for host id %d", id)
}

func (n *manualNotifier) outstanding() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.watched)
}

// ---------------------------------------------------------------------------
// fakeHost: a scriptable Host
// ---------------------------------------------------------------------------

type hostFunc func(self HostID, info Pointer, argc int, data int64)

type fakeHost struct {
	engine       *Engine
	functions    map[FunctionPtr]hostFunc
	constructors map[FunctionPtr]func(info Pointer, argc int, data int64) HostID
	destroyed    []HostID
	destructors  []FunctionPtr
	constructed  int
	nextID       HostID
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		functions:    make(map[FunctionPtr]hostFunc),
		constructors: make(map[FunctionPtr]func(Pointer, int, int64) HostID),
		nextID:       100,
	}
}

// newTestEngine wires a fake host to a fresh engine with manual notifications.
func newTestEngine(opts ...Option) (*Engine, *fakeHost, *manualNotifier) {
	h := newFakeHost()
	n := &manualNotifier{}
	e := NewEngine(h, append([]Option{WithNotifier(n)}, opts...)...)
	h.engine = e
	return e, h, n
}

func (h *fakeHost) CallFunction(fn FunctionPtr, self HostID, info Pointer, argc int, data int64) {
	f, ok := h.functions[fn]
	if !ok {
		h.engine.Frames.FrameOf(info).Throw("no such host function")
		return
	}
	f(self, info, argc, data)
}

func (h *fakeHost) CallConstructor(fn FunctionPtr, info Pointer, argc int, data int64) HostID {
	h.constructed++
	if c, ok := h.constructors[fn]; ok {
		return c(info, argc, data)
	}
	h.nextID++
	return h.nextID
}

func (h *fakeHost) CallDestructor(fn FunctionPtr, self HostID, data int64) {
	h.destructors = append(h.destructors, fn)
	h.destroyed = append(h.destroyed, self)
}

// ---------------------------------------------------------------------------
// recorder: an Observer that keeps every crossing
// ---------------------------------------------------------------------------

type recorder struct {
	crossings []Crossing
}

func (r *recorder) ObserveCrossing(c Crossing) {
	r.crossings = append(r.crossings, c)
}

func (r *recorder) kinds() []CrossingKind {
	kinds := make([]CrossingKind, len(r.crossings))
	for i, c := range r.crossings {
		kinds[i] = c.Kind
	}
	return kinds
}
