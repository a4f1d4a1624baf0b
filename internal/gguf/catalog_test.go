package gguf

import (
	"testing"
)

func TestGGUFMagic(t *testing.T) {
	if GGUFMagic != 0x46554747 {
		t.Errorf("expected GGUFMagic 0x46554747, got 0x%x", GGUFMagic)
	}
}

func TestGGMLTypeConstants(t *testing.T) {
	tests := []struct {
		got  GGMLType
		want uint32
		name string
	}{
		{GGMLTypeF32, 0, "GGMLTypeF32"},
		{GGMLTypeF16, 1, "GGMLTypeF16"},
		{GGMLTypeQ4_0, 2, "GGMLTypeQ4_0"},
		{GGMLTypeQ4_1, 3, "GGMLTypeQ4_1"},
		{GGMLTypeQ5_0, 6, "GGMLTypeQ5_0"},
		{GGMLTypeQ8_0, 8, "GGMLTypeQ8_0"},
		{GGMLTypeQ2_K, 10, "GGMLTypeQ2_K"},
		{GGMLTypeQ6_K, 14, "GGMLTypeQ6_K"},
		{GGMLTypeIQ4_XS, 23, "GGMLTypeIQ4_XS"},
		{GGMLTypeIQ1_M, 29, "GGMLTypeIQ1_M"},
		{GGMLTypeBF16, 30, "GGMLTypeBF16"},
		{GGMLTypeQ1_58, 36, "GGMLTypeQ1_58"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if uint32(tt.got) != tt.want {
				t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestBytesPerElement(t *testing.T) {
	tests := []struct {
		typ  GGMLType
		name string
		bpe  float64
	}{
		{GGMLTypeF32, "F32", 4},
		{GGMLTypeF16, "F16", 2},
		{GGMLTypeBF16, "BF16", 2},
		{GGMLTypeF64, "F64", 8},
		{GGMLTypeI8, "I8", 1},
		{GGMLTypeI64, "I64", 8},
		{GGMLTypeQ4_0, "Q4_0", 0.5625},
		{GGMLTypeQ4_1, "Q4_1", 0.625},
		{GGMLTypeQ5_0, "Q5_0", 0.6875},
		{GGMLTypeQ5_1, "Q5_1", 0.75},
		{GGMLTypeQ8_0, "Q8_0", 1.0625},
		{GGMLTypeQ8_1, "Q8_1", 1.125},
		{GGMLTypeQ2_K, "Q2_K", 0.328125},
		{GGMLTypeQ3_K, "Q3_K", 0.4296875},
		{GGMLTypeQ4_K, "Q4_K", 0.5625},
		{GGMLTypeQ5_K, "Q5_K", 0.6875},
		{GGMLTypeQ6_K, "Q6_K", 0.8203125},
		{GGMLTypeQ8_K, "Q8_K", 1.140625},
		{GGMLTypeIQ1_S, "IQ1_S", 0.1953125},
		{GGMLTypeIQ1_M, "IQ1_M", 0.21875},
		{GGMLTypeIQ2_XXS, "IQ2_XXS", 0.2578125},
		{GGMLTypeIQ4_NL, "IQ4_NL", 0.53125},
		{GGMLTypeQ1_58, "Q1_58", 0.1975},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.BytesPerElement(); got != tt.bpe {
				t.Errorf("%s.BytesPerElement() = %v, want %v", tt.name, got, tt.bpe)
			}
			if got := tt.typ.String(); got != tt.name {
				t.Errorf("String() = %q, want %q", got, tt.name)
			}
		})
	}
}

func TestCatalogCompleteness(t *testing.T) {
	types := Types()
	if len(types) != 30 {
		t.Fatalf("expected 30 catalogued types, got %d", len(types))
	}
	for i := 1; i < len(types); i++ {
		if types[i-1] >= types[i] {
			t.Errorf("Types() not in tag order at %d: %v >= %v", i, types[i-1], types[i])
		}
	}
	for _, typ := range types {
		tr, ok := typ.Trait()
		if !ok || tr.Name == "" || tr.BytesPerElement <= 0 {
			t.Errorf("bad trait for %d: %+v", uint32(typ), tr)
		}
	}
}

func TestUnknownGGMLType(t *testing.T) {
	for _, raw := range []uint32{4, 5, 31, 35, 37, 1000} {
		typ := GGMLType(raw)
		if typ.Valid() {
			t.Errorf("type %d should not be valid", raw)
		}
		if typ.BytesPerElement() != 0 {
			t.Errorf("type %d: expected 0 bytes per element", raw)
		}
	}
	if got := GGMLType(4).String(); got != "unknown(4)" {
		t.Errorf("got %q", got)
	}
}

func TestQuantizedFlag(t *testing.T) {
	if GGMLTypeF32.IsQuantized() || GGMLTypeBF16.IsQuantized() || GGMLTypeI32.IsQuantized() {
		t.Error("plain types must not be quantized")
	}
	if !GGMLTypeQ4_K.IsQuantized() || !GGMLTypeQ1_58.IsQuantized() {
		t.Error("quant types must be quantized")
	}
	if got := GGMLTypeQ4_0.BitsPerWeight(); got != 4.5 {
		t.Errorf("Q4_0 bits per weight = %v, want 4.5", got)
	}
}

func TestTensorSize(t *testing.T) {
	tests := []struct {
		name  string
		dims  []uint64
		typ   GGMLType
		elems uint64
		size  uint64
	}{
		{"scalar", nil, GGMLTypeF32, 1, 4},
		{"vector", []uint64{4096}, GGMLTypeF32, 4096, 16384},
		{"matrix f16", []uint64{4096, 4096}, GGMLTypeF16, 16777216, 33554432},
		{"embedding q4k", []uint64{4096, 32000}, GGMLTypeQ4_K, 131072000, 73728000},
		{"fractional floor", []uint64{1000}, GGMLTypeQ1_58, 1000, 197},
		{"zero dim", []uint64{4096, 0}, GGMLTypeF16, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ti := TensorInfo{Name: tt.name, Dimensions: tt.dims, Type: tt.typ}
			if got := ti.Elements(); got != tt.elems {
				t.Errorf("Elements() = %d, want %d", got, tt.elems)
			}
			if got := ti.SizeBytes(); got != tt.size {
				t.Errorf("SizeBytes() = %d, want %d", got, tt.size)
			}
		})
	}
}
