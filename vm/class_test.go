package vm

import "testing"

func constant(v Value) *Function {
	return NewFunction("const", func(Value, []Value) (Value, error) { return v, nil })
}

func TestClassMethodInheritance(t *testing.T) {
	base := NewClass("Shape", nil)
	derived := NewClass("Circle", base)

	base.DefineMethod("area", constant(0))
	base.DefineMethod("name", constant("shape"))
	derived.DefineMethod("name", constant("circle"))

	if fn := derived.LookupMethod("area"); fn == nil {
		t.Error("inherited method not found")
	}
	got, _ := derived.LookupMethod("name").Call(nil)
	if got != "circle" {
		t.Errorf("override not preferred, got %v", got)
	}
	if base.LookupMethod("missing") != nil {
		t.Error("lookup of a missing method should be nil")
	}
}

func TestClassStaticsAreNotInherited(t *testing.T) {
	base := NewClass("Base", nil)
	derived := NewClass("Derived", base)
	base.DefineStatic("create", constant(1))

	if _, err := base.CallStatic("create"); err != nil {
		t.Error(err)
	}
	if _, err := derived.CallStatic("create"); err == nil {
		t.Error("static member leaked to the subclass")
	}
}

func TestDefinePropertyRespectsConfigurable(t *testing.T) {
	c := NewClass("Thing", nil)
	fixed := &Property{Getter: constant(1), Configurable: false}
	if !c.DefineProperty("id", fixed, false) {
		t.Fatal("first definition rejected")
	}
	if c.DefineProperty("id", &Property{Getter: constant(2), Configurable: true}, false) {
		t.Error("non-configurable property was replaced")
	}
	if c.LookupProperty("id") != fixed {
		t.Error("original property lost")
	}

	loose := &Property{Getter: constant(1), Configurable: true}
	c.DefineProperty("size", loose, false)
	if !c.DefineProperty("size", &Property{Getter: constant(2), Configurable: true}, false) {
		t.Error("configurable property could not be redefined")
	}
}

func TestStaticProperties(t *testing.T) {
	c := NewClass("Config", nil)
	var stored Value
	c.DefineProperty("level", &Property{
		Getter: NewFunction("get", func(Value, []Value) (Value, error) { return stored, nil }),
		Setter: NewFunction("set", func(_ Value, args []Value) (Value, error) {
			stored = args[0]
			return nil, nil
		}),
	}, true)

	if err := c.SetStatic("level", 3); err != nil {
		t.Fatal(err)
	}
	if got, _ := c.GetStatic("level"); got != 3 {
		t.Errorf("level = %v", got)
	}
	if c.LookupProperty("level") != nil {
		t.Error("static property visible as an instance property")
	}
	if err := c.SetStatic("missing", 1); err == nil {
		t.Error("write to a missing static property should fail")
	}
}

func TestClassIsSubclassOf(t *testing.T) {
	a := NewClass("A", nil)
	b := NewClass("B", a)
	c := NewClass("C", b)
	if !c.IsSubclassOf(a) || !c.IsSubclassOf(c) {
		t.Error("IsSubclassOf missed an ancestor")
	}
	if a.IsSubclassOf(c) {
		t.Error("ancestor reported as subclass")
	}
}
