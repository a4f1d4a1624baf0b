package gguf

import (
	"reflect"
	"testing"
)

func TestValueString(t *testing.T) {
	strs := func(ss ...string) []Value {
		out := make([]Value, len(ss))
		for i, s := range ss {
			out[i] = String(s)
		}
		return out
	}
	ints := func(n int) []Value {
		out := make([]Value, n)
		for i := range out {
			out[i] = Int32(int32(i + 1))
		}
		return out
	}

	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"u8", Uint8(255), "255"},
		{"i8", Int8(-128), "-128"},
		{"u32", Uint32(4096), "4096"},
		{"i64", Int64(-9000000000), "-9000000000"},
		{"u64", Uint64(1 << 63), "9223372036854775808"},
		{"f32", Float32(0.1), "0.1"},
		{"f32 small", Float32(1e-5), "0.00001"},
		{"f64", Float64(10000.5), "10000.5"},
		{"f64 integral", Float64(1e6), "1000000"},
		{"bool", Bool(true), "true"},
		{"string", String("llama"), `"llama"`},
		{"empty array", Array(ValueTypeString), "[]"},
		{"short array", Array(ValueTypeString, strs("a", "b", "c")...), `["a", "b", "c"]`},
		{"five elements", Array(ValueTypeInt32, ints(5)...), "[1, 2, 3, 4, 5]"},
		{"six elements", Array(ValueTypeInt32, ints(6)...), "[1, 2, ..., 6 (6)]"},
		{"seven strings", Array(ValueTypeString, strs("a", "b", "c", "d", "e", "f", "g")...), `["a", "b", ..., "g" (7)]`},
		{
			"nested",
			Array(ValueTypeArray,
				Array(ValueTypeInt32, Int32(1), Int32(2)),
				Array(ValueTypeInt32, Int32(3), Int32(4)),
				Array(ValueTypeInt32, Int32(5), Int32(6)),
			),
			"[[1, 2], [3, 4], [5, 6]]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.String(); got != tt.want {
				t.Errorf("String() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestValueAccessors(t *testing.T) {
	if u, ok := Uint16(7).Uint(); !ok || u != 7 {
		t.Errorf("Uint16.Uint() = %d, %v", u, ok)
	}
	if u, ok := Int32(7).Uint(); !ok || u != 7 {
		t.Errorf("positive Int32.Uint() = %d, %v", u, ok)
	}
	if _, ok := Int32(-1).Uint(); ok {
		t.Error("negative Int32.Uint() should fail")
	}
	if _, ok := String("x").Uint(); ok {
		t.Error("String.Uint() should fail")
	}
	if i, ok := Int8(-3).Int(); !ok || i != -3 {
		t.Errorf("Int8.Int() = %d, %v", i, ok)
	}
	if f, ok := Float64(2.5).Float(); !ok || f != 2.5 {
		t.Errorf("Float64.Float() = %v, %v", f, ok)
	}
	if b, ok := Bool(true).Bool(); !ok || !b {
		t.Errorf("Bool.Bool() = %v, %v", b, ok)
	}
	if s, ok := String("gpt2").Str(); !ok || s != "gpt2" {
		t.Errorf("String.Str() = %q, %v", s, ok)
	}
	if got := Array(ValueTypeUint8, Uint8(1), Uint8(2)).Len(); got != 2 {
		t.Errorf("Len() = %d", got)
	}
	if got := Uint64(1).TypeLabel(); got != "u64" {
		t.Errorf("TypeLabel() = %q", got)
	}
}

func TestValueInterface(t *testing.T) {
	v := Array(ValueTypeArray,
		Array(ValueTypeString, String("a")),
		Array(ValueTypeString, String("b"), String("c")),
	)
	want := []any{[]any{"a"}, []any{"b", "c"}}
	if got := v.Interface(); !reflect.DeepEqual(got, want) {
		t.Errorf("Interface() = %#v, want %#v", got, want)
	}
	if got := Float32(1.5).Interface(); got != float32(1.5) {
		t.Errorf("Interface() = %#v", got)
	}
}

func TestValueTypeLabels(t *testing.T) {
	want := []string{"u8", "i8", "u16", "i16", "u32", "i32", "f32", "bool", "string", "array", "u64", "i64", "f64"}
	for i, label := range want {
		if got := ValueType(i).String(); got != label {
			t.Errorf("ValueType(%d) = %q, want %q", i, got, label)
		}
	}
	if ValueType(13).Valid() {
		t.Error("tag 13 should be invalid")
	}
	if got := ValueType(13).String(); got != "unknown(13)" {
		t.Errorf("got %q", got)
	}
}
