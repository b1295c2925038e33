package vm

import "sync"

// ---------------------------------------------------------------------------
// Class: script-side class with an explicit base chain
// ---------------------------------------------------------------------------

// Property is an accessor pair installed on a class. Setter may be nil for a
// read-only property.
type Property struct {
	Getter       *Function
	Setter       *Function
	Configurable bool
}

// Class is a script-side class. Instance members are looked up through the
// Superclass chain; static members belong to the class alone.
type Class struct {
	Name       string
	Superclass *Class

	mu          sync.RWMutex
	methods     map[string]*Function
	statics     map[string]*Function
	properties  map[string]*Property
	staticProps map[string]*Property
}

// NewClass creates a class with the given base (nil for a root class).
func NewClass(name string, superclass *Class) *Class {
	return &Class{
		Name:        name,
		Superclass:  superclass,
		methods:     make(map[string]*Function),
		statics:     make(map[string]*Function),
		properties:  make(map[string]*Property),
		staticProps: make(map[string]*Property),
	}
}

// DefineMethod installs an instance method, replacing any previous one.
func (c *Class) DefineMethod(name string, fn *Function) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.methods[name] = fn
}

// DefineStatic installs a static method on the class itself.
func (c *Class) DefineStatic(name string, fn *Function) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statics[name] = fn
}

// DefineProperty installs an instance or static accessor. A property that is
// already installed and not configurable is left untouched; the return value
// reports whether the definition took effect.
func (c *Class) DefineProperty(name string, p *Property, static bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	table := c.properties
	if static {
		table = c.staticProps
	}
	if old, ok := table[name]; ok && !old.Configurable {
		return false
	}
	table[name] = p
	return true
}

// LookupMethod finds an instance method on this class or a superclass.
func (c *Class) LookupMethod(name string) *Function {
	for current := c; current != nil; current = current.Superclass {
		current.mu.RLock()
		fn := current.methods[name]
		current.mu.RUnlock()
		if fn != nil {
			return fn
		}
	}
	return nil
}

// LookupProperty finds an instance property on this class or a superclass.
func (c *Class) LookupProperty(name string) *Property {
	for current := c; current != nil; current = current.Superclass {
		current.mu.RLock()
		p := current.properties[name]
		current.mu.RUnlock()
		if p != nil {
			return p
		}
	}
	return nil
}

// Static returns a static method defined directly on this class.
func (c *Class) Static(name string) *Function {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.statics[name]
}

// StaticProperty returns a static property defined directly on this class.
func (c *Class) StaticProperty(name string) *Property {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.staticProps[name]
}

// CallStatic invokes a static method with a nil receiver.
func (c *Class) CallStatic(name string, args ...Value) (Value, error) {
	fn := c.Static(name)
	if fn == nil {
		return nil, &ScriptError{Function: c.Name + "." + name, Message: "not a function"}
	}
	return fn.Call(nil, args...)
}

// GetStatic reads a static property.
func (c *Class) GetStatic(name string) (Value, error) {
	p := c.StaticProperty(name)
	if p == nil || p.Getter == nil {
		return nil, nil
	}
	return p.Getter.Call(nil)
}

// SetStatic writes a static property.
func (c *Class) SetStatic(name string, v Value) error {
	p := c.StaticProperty(name)
	if p == nil || p.Setter == nil {
		return &ScriptError{Function: c.Name + "." + name, Message: "property is read-only"}
	}
	_, err := p.Setter.Call(nil, v)
	return err
}

// IsSubclassOf returns true if c is a subclass of other (or is the same class).
func (c *Class) IsSubclassOf(other *Class) bool {
	for current := c; current != nil; current = current.Superclass {
		if current == other {
			return true
		}
	}
	return false
}
