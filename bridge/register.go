package bridge

import (
	"fmt"

	"github.com/chazu/tether/vm"
)

// hostClass is the behavior of a class whose instances are backed by host
// objects. Both construction paths end in adopt, which binds the proxy and
// wires it to the finalization bridge. Once the destructor has run the id is
// released, so it cannot be revived into a second destructor call.
type hostClass struct {
	engine      *Engine
	constructor FunctionPtr
	destructor  FunctionPtr
	data        int64
}

func (h *hostClass) Construct(d *ClassDescriptor, args []vm.Value) (*vm.Object, error) {
	id, err := h.engine.Dispatcher.Construct(h.constructor, args, h.data)
	if err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, &vm.ScriptError{Function: d.Name, Message: "host constructor returned no object"}
	}
	return h.adopt(d, id), nil
}

func (h *hostClass) FromHostID(d *ClassDescriptor, id HostID) *vm.Object {
	return h.adopt(d, id)
}

func (h *hostClass) adopt(d *ClassDescriptor, id HostID) *vm.Object {
	obj := vm.NewObject(d.Class)
	h.engine.Objects.Bind(id, obj)

	destructor := h.destructor
	if destructor == 0 {
		destructor = h.engine.generalDestructor
	}
	engine, data := h.engine, h.data
	h.engine.Finalization.OnFinalize(obj, id, func(id HostID) {
		engine.Objects.Unbind(id)
		engine.Dispatcher.Destruct(destructor, id, data)
	})
	return obj
}

// SetGlobalFunction exposes host callback fn as a global script function.
func (e *Engine) SetGlobalFunction(name string, fn FunctionPtr, data int64) *vm.Function {
	f := e.Dispatcher.MakeFunction(name, fn, data)
	e.Globals.Set(name, f)
	return f
}

// RegisterClass declares a host-backed class. A script-side `new` calls the
// constructor callback; proxies for existing host objects skip it. When
// destructor is 0 the engine's general destructor is used.
func (e *Engine) RegisterClass(base ClassID, name string, constructor, destructor FunctionPtr, data int64) (ClassID, error) {
	id, err := e.Objects.RegisterClass(base, name, &hostClass{
		engine:      e,
		constructor: constructor,
		destructor:  destructor,
		data:        data,
	})
	if err != nil {
		return 0, err
	}
	d, _ := e.Objects.Class(id)
	e.Globals.Set(name, d.Class)
	return id, nil
}

// RegisterStruct declares a host value type. Structs share the class
// machinery; size is informational.
func (e *Engine) RegisterStruct(base ClassID, name string, constructor, destructor FunctionPtr, data int64, size int) (ClassID, error) {
	id, err := e.RegisterClass(base, name, constructor, destructor, data)
	if err != nil {
		return 0, err
	}
	e.log.Debugf("registered struct %s (%d bytes) as class %d", name, size, id)
	return id, nil
}

// RegisterFunction installs host callback fn as a static or instance method.
func (e *Engine) RegisterFunction(classID ClassID, name string, isStatic bool, fn FunctionPtr, data int64) error {
	d, ok := e.Objects.Class(classID)
	if !ok {
		return fmt.Errorf("register function %s: class %d: %w", name, classID, ErrUnknownClass)
	}

	f := e.Dispatcher.MakeFunction(d.Name+"."+name, fn, data)
	if isStatic {
		d.Class.DefineStatic(name, f)
	} else {
		d.Class.DefineMethod(name, f)
	}
	return nil
}

// RegisterProperty installs a static or instance accessor. setter may be 0
// for a read-only property. dontDelete makes the definition permanent.
func (e *Engine) RegisterProperty(classID ClassID, name string, isStatic bool,
	getter FunctionPtr, getterData int64,
	setter FunctionPtr, setterData int64,
	dontDelete bool,
) error {
	d, ok := e.Objects.Class(classID)
	if !ok {
		return fmt.Errorf("register property %s: class %d: %w", name, classID, ErrUnknownClass)
	}

	p := &vm.Property{
		Getter:       e.Dispatcher.MakeFunction(d.Name+"."+name+" getter", getter, getterData),
		Configurable: !dontDelete,
	}
	if setter != 0 {
		p.Setter = e.Dispatcher.MakeFunction(d.Name+"."+name+" setter", setter, setterData)
	}
	if !d.Class.DefineProperty(name, p, isStatic) {
		return fmt.Errorf("register property %s: already defined on %s", name, d.Name)
	}
	return nil
}
