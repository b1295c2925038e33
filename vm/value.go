package vm

import "time"

// Value is any script-side value.
//
// Primitives travel as plain Go values:
//   - nil                       undefined / null
//   - bool
//   - int, int32, int64, float64 numbers
//   - string
//   - time.Time                 dates
//   - []Value                   arrays
//
// Heap values are pointers with identity: *Object and *Function.
// The bridge never copies a heap value, so pointer equality is script identity.
type Value = any

// Undefined is the value of a missing argument or an unset return cell.
var Undefined Value = nil

// IsNumber reports whether v is one of the numeric primitive kinds.
func IsNumber(v Value) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

// IsDate reports whether v is a date value.
func IsDate(v Value) bool {
	_, ok := v.(time.Time)
	return ok
}

// IsArray reports whether v is an array value.
func IsArray(v Value) bool {
	_, ok := v.([]Value)
	return ok
}
