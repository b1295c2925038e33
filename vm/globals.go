package vm

import (
	"sort"
	"sync"
)

// Globals is the script-side global namespace.
type Globals struct {
	mu     sync.RWMutex
	values map[string]Value
}

// NewGlobals creates an empty namespace.
func NewGlobals() *Globals {
	return &Globals{values: make(map[string]Value)}
}

// Set binds name to v.
func (g *Globals) Set(name string, v Value) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[name] = v
}

// Get returns the value bound to name and whether it exists.
func (g *Globals) Get(name string) (Value, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.values[name]
	return v, ok
}

// Call invokes the global function bound to name.
func (g *Globals) Call(name string, args ...Value) (Value, error) {
	v, _ := g.Get(name)
	fn, ok := v.(*Function)
	if !ok {
		return nil, &ScriptError{Function: name, Message: "not a function"}
	}
	return fn.Call(nil, args...)
}

// Names returns the bound names in sorted order.
func (g *Globals) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.values))
	for name := range g.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
