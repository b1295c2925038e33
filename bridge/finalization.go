package bridge

import (
	"runtime"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/chazu/tether/vm"
)

// Notifier is the platform facility that reports unreachable objects. Watch
// arranges for notify(id) to be called once obj has been collected.
type Notifier interface {
	Watch(obj *vm.Object, id HostID, notify func(HostID))
}

// CleanupNotifier watches objects with runtime.AddCleanup. Notifications
// arrive on the runtime's cleanup goroutine.
type CleanupNotifier struct{}

func (CleanupNotifier) Watch(obj *vm.Object, id HostID, notify func(HostID)) {
	runtime.AddCleanup(obj, notify, id)
}

// finalizationRecord counts the proxies registered for one host id that have
// not been reported yet.
type finalizationRecord struct {
	callback func(HostID)
	refs     int
	disposed bool
}

// FinalizationBridge tells the host, exactly once per host id, that the
// script side no longer references any proxy for it.
//
// A proxy's weak forward entry can clear before its finalizer runs. A new
// proxy revived for the same id in that window registers again, so the record
// is reference counted and the callback fires only when the count drops to
// zero.
type FinalizationBridge struct {
	mu       sync.Mutex
	records  map[HostID]*finalizationRecord
	notifier Notifier
	deferred bool
	queue    []HostID
	fired    uint64
	log      commonlog.Logger
}

// NewFinalizationBridge creates a bridge on top of notifier. When deferred is
// set, notifications are queued until Drain runs on the owning goroutine.
func NewFinalizationBridge(notifier Notifier, deferred bool) *FinalizationBridge {
	if notifier == nil {
		notifier = CleanupNotifier{}
	}
	return &FinalizationBridge{
		records:  make(map[HostID]*finalizationRecord),
		notifier: notifier,
		deferred: deferred,
		log:      commonlog.GetLogger("tether.finalization"),
	}
}

// OnFinalize watches obj as a proxy of host object id. The callback of the
// first registration for id is the one that eventually runs, unless the id
// was disposed and is now bound again, in which case the new callback takes
// over.
func (b *FinalizationBridge) OnFinalize(obj *vm.Object, id HostID, callback func(HostID)) {
	b.mu.Lock()
	if rec, ok := b.records[id]; ok {
		rec.refs++
		if rec.disposed {
			rec.disposed = false
			rec.callback = callback
		}
	} else {
		b.records[id] = &finalizationRecord{callback: callback, refs: 1}
	}
	b.mu.Unlock()

	b.notifier.Watch(obj, id, b.notify)
}

// notify is the Notifier callback.
func (b *FinalizationBridge) notify(id HostID) {
	if b.deferred {
		b.mu.Lock()
		b.queue = append(b.queue, id)
		b.mu.Unlock()
		return
	}
	b.fire(id)
}

// fire consumes one notification for id. A notification without a record
// means the two sides disagree about which proxies exist.
func (b *FinalizationBridge) fire(id HostID) {
	b.mu.Lock()
	rec, ok := b.records[id]
	if !ok {
		b.mu.Unlock()
		violation("Finalize", "no destructor record for host id %d", id)
	}
	rec.refs--
	if rec.refs > 0 {
		b.mu.Unlock()
		return
	}
	delete(b.records, id)
	run := !rec.disposed
	if run {
		b.fired++
	}
	b.mu.Unlock()

	if run {
		b.log.Debugf("host object %d unreachable, releasing", id)
		rec.callback(id)
	}
}

// Drain delivers queued notifications on the calling goroutine and returns
// how many were processed. It is a no-op when delivery is not deferred. If a
// notification turns out to be a protocol violation, the ones queued behind
// it are put back before the panic continues.
func (b *FinalizationBridge) Drain() (n int) {
	b.mu.Lock()
	queue := b.queue
	b.queue = nil
	b.mu.Unlock()

	defer func() {
		if n+1 < len(queue) {
			b.mu.Lock()
			b.queue = append(append([]HostID(nil), queue[n+1:]...), b.queue...)
			b.mu.Unlock()
		}
	}()
	for _, id := range queue {
		b.fire(id)
		n++
	}
	return n
}

// Dispose runs id's callback now, ahead of collection. The record stays as a
// tombstone until the outstanding notifications arrive, so the callback still
// runs once. Returns false if id has no record or was already disposed.
func (b *FinalizationBridge) Dispose(id HostID) bool {
	b.mu.Lock()
	rec, ok := b.records[id]
	if !ok || rec.disposed {
		b.mu.Unlock()
		return false
	}
	rec.disposed = true
	b.fired++
	b.mu.Unlock()

	rec.callback(id)
	return true
}

// Pending returns the number of host ids still awaiting finalization.
func (b *FinalizationBridge) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

// Queued returns the number of notifications waiting for Drain.
func (b *FinalizationBridge) Queued() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Refs returns the outstanding proxy count for id.
func (b *FinalizationBridge) Refs(id HostID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if rec, ok := b.records[id]; ok {
		return rec.refs
	}
	return 0
}

// Fired returns how many release callbacks have run.
func (b *FinalizationBridge) Fired() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fired
}
