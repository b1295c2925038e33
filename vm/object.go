package vm

import "sync"

// Object is a script-side instance. Objects created for host-owned values are
// proxies: all behavior comes from their class, and the bridge tracks their
// host identity out of band.
type Object struct {
	class *Class

	mu     sync.RWMutex
	fields map[string]Value
}

// NewObject creates an instance of c with no own fields.
func NewObject(c *Class) *Object {
	return &Object{class: c}
}

// Class returns the object's class.
func (o *Object) Class() *Class {
	return o.class
}

// ClassName returns the name of the object's class, or "Object" for classless objects.
func (o *Object) ClassName() string {
	if o.class == nil {
		return "Object"
	}
	return o.class.Name
}

// Send dispatches a method call through the class chain.
func (o *Object) Send(name string, args ...Value) (Value, error) {
	var fn *Function
	if o.class != nil {
		fn = o.class.LookupMethod(name)
	}
	if fn == nil {
		return nil, &ScriptError{Function: o.ClassName() + "." + name, Message: "not a function"}
	}
	return fn.Call(o, args...)
}

// Get reads a property (through its getter) or an own field.
func (o *Object) Get(name string) (Value, error) {
	if o.class != nil {
		if p := o.class.LookupProperty(name); p != nil {
			if p.Getter == nil {
				return nil, nil
			}
			return p.Getter.Call(o)
		}
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.fields[name], nil
}

// Set writes a property (through its setter) or an own field.
func (o *Object) Set(name string, v Value) error {
	if o.class != nil {
		if p := o.class.LookupProperty(name); p != nil {
			if p.Setter == nil {
				return &ScriptError{Function: o.ClassName() + "." + name, Message: "property is read-only"}
			}
			_, err := p.Setter.Call(o, v)
			return err
		}
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fields == nil {
		o.fields = make(map[string]Value)
	}
	o.fields[name] = v
	return nil
}
