package gguf

import (
	"strconv"
	"strings"
)

// maxInlineArray is the longest array rendered element by element.
const maxInlineArray = 5

// Value is one decoded metadata value. Scalars live in the typed
// fields; arrays carry their element type and elements.
type Value struct {
	Type ValueType

	u    uint64
	i    int64
	f    float64
	b    bool
	s    string
	Elem ValueType
	Arr  []Value
}

func Uint8(v uint8) Value   { return Value{Type: ValueTypeUint8, u: uint64(v)} }
func Uint16(v uint16) Value { return Value{Type: ValueTypeUint16, u: uint64(v)} }
func Uint32(v uint32) Value { return Value{Type: ValueTypeUint32, u: uint64(v)} }
func Uint64(v uint64) Value { return Value{Type: ValueTypeUint64, u: v} }
func Int8(v int8) Value     { return Value{Type: ValueTypeInt8, i: int64(v)} }
func Int16(v int16) Value   { return Value{Type: ValueTypeInt16, i: int64(v)} }
func Int32(v int32) Value   { return Value{Type: ValueTypeInt32, i: int64(v)} }
func Int64(v int64) Value   { return Value{Type: ValueTypeInt64, i: v} }
func Float32(v float32) Value {
	return Value{Type: ValueTypeFloat32, f: float64(v)}
}
func Float64(v float64) Value { return Value{Type: ValueTypeFloat64, f: v} }
func Bool(v bool) Value       { return Value{Type: ValueTypeBool, b: v} }
func String(v string) Value   { return Value{Type: ValueTypeString, s: v} }

// Array builds an array value. All elements must be of type elem.
func Array(elem ValueType, vs ...Value) Value {
	return Value{Type: ValueTypeArray, Elem: elem, Arr: vs}
}

// Uint returns the value as uint64 for any non-negative integer type.
func (v Value) Uint() (uint64, bool) {
	switch v.Type {
	case ValueTypeUint8, ValueTypeUint16, ValueTypeUint32, ValueTypeUint64:
		return v.u, true
	case ValueTypeInt8, ValueTypeInt16, ValueTypeInt32, ValueTypeInt64:
		if v.i >= 0 {
			return uint64(v.i), true
		}
	}
	return 0, false
}

// Int returns the value as int64 for signed types.
func (v Value) Int() (int64, bool) {
	switch v.Type {
	case ValueTypeInt8, ValueTypeInt16, ValueTypeInt32, ValueTypeInt64:
		return v.i, true
	}
	return 0, false
}

func (v Value) Float() (float64, bool) {
	switch v.Type {
	case ValueTypeFloat32, ValueTypeFloat64:
		return v.f, true
	}
	return 0, false
}

func (v Value) Bool() (bool, bool) {
	return v.b, v.Type == ValueTypeBool
}

func (v Value) Str() (string, bool) {
	return v.s, v.Type == ValueTypeString
}

// Len is the number of elements of an array value, 0 otherwise.
func (v Value) Len() int {
	return len(v.Arr)
}

// Interface converts the value to a plain Go value; arrays become
// []any.
func (v Value) Interface() any {
	switch v.Type {
	case ValueTypeUint8:
		return uint8(v.u)
	case ValueTypeUint16:
		return uint16(v.u)
	case ValueTypeUint32:
		return uint32(v.u)
	case ValueTypeUint64:
		return v.u
	case ValueTypeInt8:
		return int8(v.i)
	case ValueTypeInt16:
		return int16(v.i)
	case ValueTypeInt32:
		return int32(v.i)
	case ValueTypeInt64:
		return v.i
	case ValueTypeFloat32:
		return float32(v.f)
	case ValueTypeFloat64:
		return v.f
	case ValueTypeBool:
		return v.b
	case ValueTypeString:
		return v.s
	case ValueTypeArray:
		out := make([]any, len(v.Arr))
		for i := range v.Arr {
			out[i] = v.Arr[i].Interface()
		}
		return out
	}
	return nil
}

// TypeLabel is the display label of the value's type.
func (v Value) TypeLabel() string {
	return v.Type.String()
}

// String renders the value for display. Arrays longer than five
// elements are abbreviated as "[first, second, ..., last (N)]".
func (v Value) String() string {
	var sb strings.Builder
	v.render(&sb)
	return sb.String()
}

func (v Value) render(sb *strings.Builder) {
	switch v.Type {
	case ValueTypeUint8, ValueTypeUint16, ValueTypeUint32, ValueTypeUint64:
		sb.WriteString(strconv.FormatUint(v.u, 10))
	case ValueTypeInt8, ValueTypeInt16, ValueTypeInt32, ValueTypeInt64:
		sb.WriteString(strconv.FormatInt(v.i, 10))
	case ValueTypeFloat32:
		sb.WriteString(strconv.FormatFloat(v.f, 'f', -1, 32))
	case ValueTypeFloat64:
		sb.WriteString(strconv.FormatFloat(v.f, 'f', -1, 64))
	case ValueTypeBool:
		sb.WriteString(strconv.FormatBool(v.b))
	case ValueTypeString:
		sb.WriteByte('"')
		sb.WriteString(v.s)
		sb.WriteByte('"')
	case ValueTypeArray:
		n := len(v.Arr)
		sb.WriteByte('[')
		if n <= maxInlineArray {
			for i := range v.Arr {
				if i > 0 {
					sb.WriteString(", ")
				}
				v.Arr[i].render(sb)
			}
		} else {
			v.Arr[0].render(sb)
			sb.WriteString(", ")
			v.Arr[1].render(sb)
			sb.WriteString(", ..., ")
			v.Arr[n-1].render(sb)
			sb.WriteString(" (")
			sb.WriteString(strconv.Itoa(n))
			sb.WriteByte(')')
		}
		sb.WriteByte(']')
	default:
		sb.WriteString(v.Type.String())
	}
}
