package host

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/chazu/tether/bridge"
	"github.com/chazu/tether/vm"
)

// Vector is the Go value behind a demo Vector object.
type Vector struct {
	X, Y float64
}

// Demo is a small host library installed into an engine: a Vector class, a
// print function and an apply function that calls back into script.
type Demo struct {
	Runtime *Runtime
	Engine  *bridge.Engine
	Vector  bridge.ClassID
	Output  []string
}

// InstallDemo registers the demo library with e, which must have been
// started from r.
func InstallDemo(r *Runtime, e *bridge.Engine) (*Demo, error) {
	d := &Demo{Runtime: r, Engine: e}

	e.SetGlobalFunction("print", r.RegisterFunction("print", d.print), 0)
	e.SetGlobalFunction("apply", r.RegisterFunction("apply", d.apply), 0)

	cid, err := e.RegisterClass(0, "Vector",
		r.RegisterConstructor("Vector", newVector),
		r.RegisterDestructor("~Vector", d.dropVector),
		0)
	if err != nil {
		return nil, err
	}
	d.Vector = cid

	for _, m := range []struct {
		name     string
		isStatic bool
		fn       Function
	}{
		{"length", false, vectorLength},
		{"add", false, d.vectorAdd},
		{"zero", true, d.vectorZero},
	} {
		if err := e.RegisterFunction(cid, m.name, m.isStatic, r.RegisterFunction("Vector."+m.name, m.fn), 0); err != nil {
			return nil, err
		}
	}

	getter := r.RegisterFunction("Vector.get", vectorGet)
	setter := r.RegisterFunction("Vector.set", vectorSet)
	if err := e.RegisterProperty(cid, "x", false, getter, 'x', setter, 'x', true); err != nil {
		return nil, err
	}
	if err := e.RegisterProperty(cid, "y", false, getter, 'y', 0, 0, true); err != nil {
		return nil, err
	}
	return d, nil
}

// NewVector performs a script-side `new Vector(x, y)`.
func (d *Demo) NewVector(x, y float64) (*vm.Object, error) {
	return d.Engine.New(d.Vector, x, y)
}

// VectorOf returns the Go value behind a Vector proxy.
func (d *Demo) VectorOf(obj *vm.Object) (*Vector, bool) {
	id, ok := d.Engine.Objects.IDOf(obj)
	if !ok {
		return nil, false
	}
	v, ok := d.Runtime.Value(id)
	if !ok {
		return nil, false
	}
	vec, ok := v.(*Vector)
	return vec, ok
}

func (d *Demo) print(c *Call) {
	parts := make([]string, c.Argc)
	for i := range parts {
		parts[i] = fmt.Sprint(c.Arg(i))
	}
	d.Output = append(d.Output, strings.Join(parts, " "))
}

// apply(callable, args...) invokes a script callable from the host side.
func (d *Demo) apply(c *Call) {
	id, ok := c.Arg(0).(bridge.CallableID)
	if !ok {
		c.Throw("apply: first argument must be a callable id")
		return
	}
	args := make([]vm.Value, 0, c.Argc-1)
	for i := 1; i < c.Argc; i++ {
		args = append(args, c.Arg(i))
	}
	ret, msg := d.Engine.CallScript(id, args...)
	if msg != "" {
		c.Throw("apply: " + msg)
		return
	}
	c.Return(ret)
}

func newVector(c *Call) (any, error) {
	x, okX := c.Float(0)
	y, okY := c.Float(1)
	if c.Argc > 0 && !okX || c.Argc > 1 && !okY {
		return nil, errors.New("Vector: coordinates must be numbers")
	}
	return &Vector{X: x, Y: y}, nil
}

func (d *Demo) dropVector(id bridge.HostID, value any) {
	d.Runtime.log.Debugf("vector %d released: %+v", id, value)
}

func selfVector(c *Call) (*Vector, bool) {
	v, ok := c.SelfValue()
	if !ok {
		c.Throw("receiver is not a live host object")
		return nil, false
	}
	vec, ok := v.(*Vector)
	if !ok {
		c.Throw("receiver is not a Vector")
	}
	return vec, ok
}

func vectorLength(c *Call) {
	if v, ok := selfVector(c); ok {
		c.Return(math.Hypot(v.X, v.Y))
	}
}

func (d *Demo) vectorAdd(c *Call) {
	v, ok := selfVector(c)
	if !ok {
		return
	}
	other, ok := c.Arg(0).(*vm.Object)
	if !ok {
		c.Throw("add: argument must be a Vector")
		return
	}
	w, ok := d.VectorOf(other)
	if !ok {
		c.Throw("add: argument must be a Vector")
		return
	}
	id := d.Runtime.Put(&Vector{X: v.X + w.X, Y: v.Y + w.Y})
	c.Return(d.Engine.ObjectFor(id, d.Vector))
}

func (d *Demo) vectorZero(c *Call) {
	id := d.Runtime.Put(&Vector{})
	c.Return(d.Engine.ObjectFor(id, d.Vector))
}

// vectorGet and vectorSet serve both coordinates; data selects which.
func vectorGet(c *Call) {
	v, ok := selfVector(c)
	if !ok {
		return
	}
	if c.Data == 'x' {
		c.Return(v.X)
	} else {
		c.Return(v.Y)
	}
}

func vectorSet(c *Call) {
	v, ok := selfVector(c)
	if !ok {
		return
	}
	f, ok := c.Float(0)
	if !ok {
		c.Throw("coordinate must be a number")
		return
	}
	if c.Data == 'x' {
		v.X = f
	} else {
		v.Y = f
	}
}
