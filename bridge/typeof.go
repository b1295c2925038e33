package bridge

import (
	"strings"

	"github.com/chazu/tether/vm"
)

// ValueType classifies a script value for marshaling. The values are bit
// flags so a host can test a parameter against a set of accepted types.
type ValueType uint32

const (
	TypeNull         ValueType = 1
	TypeNumber       ValueType = 4
	TypeString       ValueType = 8
	TypeBoolean      ValueType = 16
	TypeNativeObject ValueType = 32
	TypeScriptObject ValueType = 64
	TypeArray        ValueType = 128
	TypeFunction     ValueType = 256
	TypeDate         ValueType = 512
)

var typeNames = []struct {
	t    ValueType
	name string
}{
	{TypeNull, "null"},
	{TypeNumber, "number"},
	{TypeString, "string"},
	{TypeBoolean, "boolean"},
	{TypeNativeObject, "native"},
	{TypeScriptObject, "object"},
	{TypeArray, "array"},
	{TypeFunction, "function"},
	{TypeDate, "date"},
}

func (t ValueType) String() string {
	var parts []string
	for _, tn := range typeNames {
		if t&tn.t != 0 {
			parts = append(parts, tn.name)
		}
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, "|")
}

// classify returns the ValueType of v. Objects bound in objects are host
// proxies; every other object is a plain script object.
func classify(objects *ObjectMap, v vm.Value) ValueType {
	switch x := v.(type) {
	case nil:
		return TypeNull
	case string:
		return TypeString
	case bool:
		return TypeBoolean
	case *vm.Function:
		return TypeFunction
	case []vm.Value:
		return TypeArray
	case *vm.Object:
		if _, ok := objects.IDOf(x); ok {
			return TypeNativeObject
		}
		return TypeScriptObject
	}
	switch {
	case vm.IsNumber(v):
		return TypeNumber
	case vm.IsDate(v):
		return TypeDate
	}
	return TypeScriptObject
}

func classifyAll(objects *ObjectMap, args []vm.Value) []ValueType {
	if len(args) == 0 {
		return nil
	}
	types := make([]ValueType, len(args))
	for i, a := range args {
		types[i] = classify(objects, a)
	}
	return types
}
