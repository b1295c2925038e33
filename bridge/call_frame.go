package bridge

import (
	"container/heap"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/chazu/tether/vm"
)

// ---------------------------------------------------------------------------
// CallFrame: argument list and return slot of one in-flight call
// ---------------------------------------------------------------------------

// CallFrame holds the state of a single boundary call. It is mutated only by
// the call it belongs to and is cleared when the call's epilogue runs.
type CallFrame struct {
	args      []vm.Value
	ret       vm.Value
	exception string
	live      bool
}

// Len returns the call's arity.
func (f *CallFrame) Len() int {
	return len(f.args)
}

// Args returns the argument slice. The slice is owned by the frame.
func (f *CallFrame) Args() []vm.Value {
	return f.args
}

// Arg returns argument i, or undefined when the call passed fewer arguments.
func (f *CallFrame) Arg(i int) vm.Value {
	if i < 0 || i >= len(f.args) {
		return vm.Undefined
	}
	return f.args[i]
}

// SetArg overwrites argument i, growing the list when needed.
func (f *CallFrame) SetArg(i int, v vm.Value) {
	for len(f.args) <= i {
		f.args = append(f.args, vm.Undefined)
	}
	f.args[i] = v
}

// ReturnValue returns the current content of the return cell.
func (f *CallFrame) ReturnValue() vm.Value {
	return f.ret
}

// SetReturnValue stores v in the return cell.
func (f *CallFrame) SetReturnValue(v vm.Value) {
	f.ret = v
}

// Throw records a host-side exception for the call. The script-side caller
// receives it as a *vm.ScriptError instead of a return value.
func (f *CallFrame) Throw(message string) {
	f.exception = message
}

// Exception returns the message recorded by Throw, if any.
func (f *CallFrame) Exception() string {
	return f.exception
}

func (f *CallFrame) recycle() {
	f.args = nil
	f.ret = vm.Undefined
	f.exception = ""
	f.live = false
}

// ---------------------------------------------------------------------------
// FrameTable: synthetic address space for call frames
// ---------------------------------------------------------------------------

// freeList is a min-heap of recycled frame indices.
type freeList []int

func (l freeList) Len() int           { return len(l) }
func (l freeList) Less(i, j int) bool { return l[i] < l[j] }
func (l freeList) Swap(i, j int)      { l[i], l[j] = l[j], l[i] }
func (l *freeList) Push(x any)        { *l = append(*l, x.(int)) }
func (l *freeList) Pop() any {
	old := *l
	n := len(old)
	x := old[n-1]
	*l = old[:n-1]
	return x
}

// FrameTable maps synthetic pointers to call frames. Slot 0 always holds a
// placeholder that is never live, so pointer 0 is never valid.
type FrameTable struct {
	mu     sync.Mutex
	frames []*CallFrame
	free   freeList
	live   int
	peak   int
	log    commonlog.Logger
}

// NewFrameTable creates a table with room for capacity frames before growing.
func NewFrameTable(capacity int) *FrameTable {
	if capacity < 1 {
		capacity = 1
	}
	frames := make([]*CallFrame, 1, capacity+1)
	frames[0] = &CallFrame{args: []vm.Value{0}}
	return &FrameTable{
		frames: frames,
		log:    commonlog.GetLogger("tether.frames"),
	}
}

// Allocate stores a copy of args in a fresh frame and returns its pointer.
// Host writes to the frame never reach the caller's slice. The lowest
// recycled index is reused first; otherwise the table grows by one slot.
func (t *FrameTable) Allocate(args []vm.Value) Pointer {
	t.mu.Lock()
	defer t.mu.Unlock()

	var index int
	if t.free.Len() > 0 {
		index = heap.Pop(&t.free).(int)
	} else {
		index = len(t.frames)
		t.frames = append(t.frames, &CallFrame{})
		if index&(index-1) == 0 {
			t.log.Debugf("frame table grew to %d slots", index)
		}
	}

	f := t.frames[index]
	f.args = append([]vm.Value(nil), args...)
	f.live = true

	t.live++
	if t.live > t.peak {
		t.peak = t.live
	}
	return makePointer(index)
}

// FrameOf returns the live frame p points into. Reading an unallocated or
// recycled pointer is a protocol violation.
func (t *FrameTable) FrameOf(p Pointer) *CallFrame {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frameLocked("FrameOf", p)
}

func (t *FrameTable) frameLocked(op string, p Pointer) *CallFrame {
	index := p.Index()
	if index <= 0 || index >= len(t.frames) {
		violation(op, "pointer %s out of range (table has %d frames)", p, len(t.frames)-1)
	}
	f := t.frames[index]
	if !f.live {
		violation(op, "pointer %s refers to a recycled frame", p)
	}
	return f
}

// Argument returns the argument p addresses: frame index and sub-index are
// resolved in one step.
func (t *FrameTable) Argument(p Pointer) vm.Value {
	return t.FrameOf(p).Arg(p.Arg())
}

// ArgumentAt returns the argument p addresses as a T. The boolean is false
// when the argument is missing or has a different type.
func ArgumentAt[T any](t *FrameTable, p Pointer) (T, bool) {
	v, ok := t.Argument(p).(T)
	return v, ok
}

// ConsumeReturnValue reads the frame's return cell, recycles the frame and
// returns the value. A pointer can be consumed exactly once.
func (t *FrameTable) ConsumeReturnValue(p Pointer) vm.Value {
	t.mu.Lock()
	defer t.mu.Unlock()

	f := t.frameLocked("ConsumeReturnValue", p)
	ret := f.ret
	t.recycleLocked(p.Index(), f)
	return ret
}

// Release recycles the frame without reading its return value.
func (t *FrameTable) Release(p Pointer) {
	t.mu.Lock()
	defer t.mu.Unlock()

	f := t.frameLocked("Release", p)
	t.recycleLocked(p.Index(), f)
}

func (t *FrameTable) recycleLocked(index int, f *CallFrame) {
	f.recycle()
	heap.Push(&t.free, index)
	t.live--
}

// Live returns the number of frames currently allocated.
func (t *FrameTable) Live() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.live
}

// Capacity returns the number of real slots (excluding the placeholder).
func (t *FrameTable) Capacity() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.frames) - 1
}

// Peak returns the highest number of simultaneously live frames seen.
func (t *FrameTable) Peak() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peak
}

// Free returns the number of recycled slots waiting for reuse.
func (t *FrameTable) Free() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.free.Len()
}
