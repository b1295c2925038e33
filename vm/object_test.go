package vm

import (
	"errors"
	"testing"
)

func TestObjectSendBindsSelf(t *testing.T) {
	c := NewClass("Counter", nil)
	c.DefineMethod("me", NewFunction("me", func(self Value, _ []Value) (Value, error) {
		return self, nil
	}))
	obj := NewObject(c)

	got, err := obj.Send("me")
	if err != nil {
		t.Fatal(err)
	}
	if got != obj {
		t.Error("method did not receive the object as self")
	}

	_, err = obj.Send("missing")
	var se *ScriptError
	if !errors.As(err, &se) || se.Function != "Counter.missing" {
		t.Errorf("err = %v", err)
	}
}

func TestObjectFieldsAndProperties(t *testing.T) {
	c := NewClass("Box", nil)
	c.DefineProperty("size", &Property{Getter: constant(10)}, false)
	obj := NewObject(c)

	if err := obj.Set("label", "fragile"); err != nil {
		t.Fatal(err)
	}
	if got, _ := obj.Get("label"); got != "fragile" {
		t.Errorf("label = %v", got)
	}
	if got, _ := obj.Get("size"); got != 10 {
		t.Errorf("size = %v", got)
	}
	if err := obj.Set("size", 11); err == nil {
		t.Error("read-only property accepted a write")
	}
	if got, _ := obj.Get("nothing"); got != Undefined {
		t.Errorf("missing field = %v", got)
	}
}

func TestClasslessObject(t *testing.T) {
	obj := NewObject(nil)
	if obj.ClassName() != "Object" {
		t.Errorf("ClassName = %s", obj.ClassName())
	}
	if _, err := obj.Send("anything"); err == nil {
		t.Error("Send on a classless object should fail")
	}
}
