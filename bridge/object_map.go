package bridge

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/chazu/tether/vm"
)

// HostID is the host-assigned id of a host-owned object. 0 is never a valid id.
type HostID int32

// ClassID indexes the class table. 0 means "no class".
type ClassID int32

// ---------------------------------------------------------------------------
// Class descriptors
// ---------------------------------------------------------------------------

// ClassBehavior supplies the two ways a proxy instance comes into existence.
// Construct runs for a script-side `new`; FromHostID builds a proxy for a host
// object that already exists and must Bind it before returning.
type ClassBehavior interface {
	Construct(d *ClassDescriptor, args []vm.Value) (*vm.Object, error)
	FromHostID(d *ClassDescriptor, id HostID) *vm.Object
}

// ClassFuncs adapts a pair of functions to ClassBehavior. A nil
// ConstructFunc makes the class unconstructible from script.
type ClassFuncs struct {
	ConstructFunc  func(d *ClassDescriptor, args []vm.Value) (*vm.Object, error)
	FromHostIDFunc func(d *ClassDescriptor, id HostID) *vm.Object
}

func (f ClassFuncs) Construct(d *ClassDescriptor, args []vm.Value) (*vm.Object, error) {
	if f.ConstructFunc == nil {
		return nil, fmt.Errorf("class %s has no script constructor", d.Name)
	}
	return f.ConstructFunc(d, args)
}

func (f ClassFuncs) FromHostID(d *ClassDescriptor, id HostID) *vm.Object {
	if f.FromHostIDFunc == nil {
		return nil
	}
	return f.FromHostIDFunc(d, id)
}

// ClassDescriptor is one entry of the class table.
type ClassDescriptor struct {
	ID    ClassID
	Name  string
	Base  *ClassDescriptor
	Class *vm.Class

	behavior ClassBehavior
}

// New constructs an instance from script-side arguments.
func (d *ClassDescriptor) New(args ...vm.Value) (*vm.Object, error) {
	return d.behavior.Construct(d, args)
}

// FromHostID builds a proxy for an existing host object.
func (d *ClassDescriptor) FromHostID(id HostID) *vm.Object {
	return d.behavior.FromHostID(d, id)
}

// IsSubclassOf returns true if d derives from other (or is other).
func (d *ClassDescriptor) IsSubclassOf(other *ClassDescriptor) bool {
	for current := d; current != nil; current = current.Base {
		if current == other {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// ObjectMap: host id <-> proxy identity
// ---------------------------------------------------------------------------

// ObjectMap associates host object ids with script-side proxies. Both
// directions are weak: a proxy the script no longer references is collected,
// and the next lookup of its id revives a fresh proxy through the class's
// FromHostID factory.
type ObjectMap struct {
	mu       sync.Mutex
	classes  []*ClassDescriptor
	byName   map[string]ClassID
	forward  map[HostID]vm.WeakReference
	reverse  map[vm.WeakReference]HostID
	released map[HostID]struct{}
	revivals uint64
	log      commonlog.Logger
}

// NewObjectMap creates an empty map. Class ids start at 1.
func NewObjectMap() *ObjectMap {
	return &ObjectMap{
		classes:  []*ClassDescriptor{nil},
		byName:   make(map[string]ClassID),
		forward:  make(map[HostID]vm.WeakReference),
		reverse:  make(map[vm.WeakReference]HostID),
		released: make(map[HostID]struct{}),
		log:      commonlog.GetLogger("tether.objects"),
	}
}

// RegisterClass adds a class and returns its id. A positive base links the
// new script class to the base's, so inherited members dispatch normally.
func (m *ObjectMap) RegisterClass(base ClassID, name string, b ClassBehavior) (ClassID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var baseDesc *ClassDescriptor
	var baseClass *vm.Class
	if base > 0 {
		baseDesc = m.classLocked(base)
		if baseDesc == nil {
			return 0, fmt.Errorf("register class %s: base %d: %w", name, base, ErrUnknownClass)
		}
		baseClass = baseDesc.Class
	}

	id := ClassID(len(m.classes))
	d := &ClassDescriptor{
		ID:       id,
		Name:     name,
		Base:     baseDesc,
		Class:    vm.NewClass(name, baseClass),
		behavior: b,
	}
	m.classes = append(m.classes, d)
	m.byName[name] = id

	m.log.Debugf("registered class %d %s (base %d)", id, name, base)
	return id, nil
}

func (m *ObjectMap) classLocked(id ClassID) *ClassDescriptor {
	if id <= 0 || int(id) >= len(m.classes) {
		return nil
	}
	return m.classes[id]
}

// Class returns the descriptor for id.
func (m *ObjectMap) Class(id ClassID) (*ClassDescriptor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.classLocked(id)
	return d, d != nil
}

// ClassByName returns the descriptor registered under name.
func (m *ObjectMap) ClassByName(name string) (*ClassDescriptor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byName[name]
	if !ok {
		return nil, false
	}
	return m.classes[id], true
}

// ClassCount returns the number of registered classes.
func (m *ObjectMap) ClassCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.classes) - 1
}

// Bind records that obj is the proxy for host object id. It is called once
// per (id, obj) pair from the proxy's construction path. Binding id 0, or an
// object that is already bound, is a protocol violation.
func (m *ObjectMap) Bind(id HostID, obj *vm.Object) {
	if id == 0 {
		violation("Bind", "host id 0 is not a valid object id")
	}
	if obj == nil {
		violation("Bind", "nil proxy for host id %d", id)
	}

	wr := vm.NewWeakReference(obj)

	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.reverse[wr]; ok {
		violation("Bind", "proxy already bound to host id %d, cannot bind to %d", prev, id)
	}
	m.forward[id] = wr
	m.reverse[wr] = id
	delete(m.released, id)

	runtime.AddCleanup(obj, m.collected, wr)
}

// collected runs after a bound proxy has been reclaimed.
func (m *ObjectMap) collected(wr vm.WeakReference) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.reverse[wr]
	if !ok {
		return
	}
	delete(m.reverse, wr)
	if m.forward[id] == wr {
		delete(m.forward, id)
	}
}

// Unbind drops both entries for id. The host uses it to declare the id
// invalid: a proxy that is still alive becomes a plain script object, and
// reviving the id is a protocol violation until it is bound again.
func (m *ObjectMap) Unbind(id HostID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if wr, ok := m.forward[id]; ok {
		if m.reverse[wr] == id {
			delete(m.reverse, wr)
		}
		delete(m.forward, id)
	}
	m.released[id] = struct{}{}
}

// Lookup returns the live proxy bound to id, if any.
func (m *ObjectMap) Lookup(id HostID) *vm.Object {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.forward[id].Get()
}

// FindOrRevive returns the live proxy for id, or builds one through the
// FromHostID factory of classID. The factory must bind the proxy it returns.
func (m *ObjectMap) FindOrRevive(id HostID, classID ClassID) *vm.Object {
	obj, d := m.findLocked(id, classID)
	if obj != nil {
		return obj
	}

	obj = d.FromHostID(id)
	if obj == nil {
		violation("FindOrRevive", "class %s returned no proxy for host id %d", d.Name, id)
	}
	if !m.boundTo(id, obj) {
		violation("FindOrRevive", "class %s did not bind its proxy for host id %d", d.Name, id)
	}
	m.log.Debugf("revived host object %d as %s", id, d.Name)
	return obj
}

func (m *ObjectMap) findLocked(id HostID, classID ClassID) (*vm.Object, *ClassDescriptor) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, gone := m.released[id]; gone {
		violation("FindOrRevive", "host id %d was released by the host", id)
	}
	if obj := m.forward[id].Get(); obj != nil {
		return obj, nil
	}
	d := m.classLocked(classID)
	if d == nil {
		violation("FindOrRevive", "unknown class %d for host id %d", classID, id)
	}
	return nil, d
}

func (m *ObjectMap) boundTo(id HostID, obj *vm.Object) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forward[id].Get() != obj {
		return false
	}
	m.revivals++
	return true
}

// IDOf returns the host id obj is bound to. The boolean is false for plain
// script objects.
func (m *ObjectMap) IDOf(obj *vm.Object) (HostID, bool) {
	if obj == nil {
		return 0, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.reverse[vm.NewWeakReference(obj)]
	return id, ok
}

// IsReleased reports whether id was released through Unbind.
func (m *ObjectMap) IsReleased(id HostID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.released[id]
	return ok
}

// Sweep drops forward entries whose proxy has been collected but whose
// cleanup has not run yet. Returns the number of entries removed.
func (m *ObjectMap) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	swept := 0
	for id, wr := range m.forward {
		if !wr.IsAlive() {
			delete(m.forward, id)
			swept++
		}
	}
	return swept
}

// Len returns the number of forward entries (live or not yet swept).
func (m *ObjectMap) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.forward)
}

// Revivals returns how many proxies were rebuilt through FromHostID.
func (m *ObjectMap) Revivals() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revivals
}
