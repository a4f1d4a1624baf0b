package gguf

import (
	"fmt"
	"sort"
)

// GGMLType is the storage encoding of a tensor.
type GGMLType uint32

//nolint:revive // Underscores in names match the GGML type names.
const (
	GGMLTypeF32  GGMLType = 0
	GGMLTypeF16  GGMLType = 1
	GGMLTypeQ4_0 GGMLType = 2
	GGMLTypeQ4_1 GGMLType = 3
	// 4 and 5 were Q4_2 and Q4_3, removed upstream.
	GGMLTypeQ5_0    GGMLType = 6
	GGMLTypeQ5_1    GGMLType = 7
	GGMLTypeQ8_0    GGMLType = 8
	GGMLTypeQ8_1    GGMLType = 9
	GGMLTypeQ2_K    GGMLType = 10
	GGMLTypeQ3_K    GGMLType = 11
	GGMLTypeQ4_K    GGMLType = 12
	GGMLTypeQ5_K    GGMLType = 13
	GGMLTypeQ6_K    GGMLType = 14
	GGMLTypeQ8_K    GGMLType = 15
	GGMLTypeIQ2_XXS GGMLType = 16
	GGMLTypeIQ2_XS  GGMLType = 17
	GGMLTypeIQ3_XXS GGMLType = 18
	GGMLTypeIQ1_S   GGMLType = 19
	GGMLTypeIQ4_NL  GGMLType = 20
	GGMLTypeIQ3_S   GGMLType = 21
	GGMLTypeIQ2_S   GGMLType = 22
	GGMLTypeIQ4_XS  GGMLType = 23
	GGMLTypeI8      GGMLType = 24
	GGMLTypeI16     GGMLType = 25
	GGMLTypeI32     GGMLType = 26
	GGMLTypeI64     GGMLType = 27
	GGMLTypeF64     GGMLType = 28
	GGMLTypeIQ1_M   GGMLType = 29
	GGMLTypeBF16    GGMLType = 30
	GGMLTypeQ1_58   GGMLType = 36
)

// TypeTrait describes the packing of one encoding.
type TypeTrait struct {
	Name string
	// BytesPerElement is the average storage cost of one element,
	// including the scales shared by a block or super-block.
	BytesPerElement float64
	Quantized       bool
}

// typeTraits is the quantization catalog. Values are fixed by the
// encodings' bit packing; add new formats here only.
var typeTraits = map[GGMLType]TypeTrait{
	GGMLTypeF32:  {Name: "F32", BytesPerElement: 4},
	GGMLTypeF16:  {Name: "F16", BytesPerElement: 2},
	GGMLTypeBF16: {Name: "BF16", BytesPerElement: 2},
	GGMLTypeF64:  {Name: "F64", BytesPerElement: 8},
	GGMLTypeI8:   {Name: "I8", BytesPerElement: 1},
	GGMLTypeI16:  {Name: "I16", BytesPerElement: 2},
	GGMLTypeI32:  {Name: "I32", BytesPerElement: 4},
	GGMLTypeI64:  {Name: "I64", BytesPerElement: 8},

	// Legacy quants, blocks of 32.
	GGMLTypeQ4_0: {Name: "Q4_0", BytesPerElement: 0.5625, Quantized: true}, // 18/32
	GGMLTypeQ4_1: {Name: "Q4_1", BytesPerElement: 0.625, Quantized: true},  // 20/32
	GGMLTypeQ5_0: {Name: "Q5_0", BytesPerElement: 0.6875, Quantized: true}, // 22/32
	GGMLTypeQ5_1: {Name: "Q5_1", BytesPerElement: 0.75, Quantized: true},   // 24/32
	GGMLTypeQ8_0: {Name: "Q8_0", BytesPerElement: 1.0625, Quantized: true}, // 34/32
	GGMLTypeQ8_1: {Name: "Q8_1", BytesPerElement: 1.125, Quantized: true},  // 36/32

	// K-quants, super-blocks of 256.
	GGMLTypeQ2_K: {Name: "Q2_K", BytesPerElement: 0.328125, Quantized: true},  // 2.625 bpw
	GGMLTypeQ3_K: {Name: "Q3_K", BytesPerElement: 0.4296875, Quantized: true}, // 3.4375 bpw
	GGMLTypeQ4_K: {Name: "Q4_K", BytesPerElement: 0.5625, Quantized: true},    // 4.5 bpw
	GGMLTypeQ5_K: {Name: "Q5_K", BytesPerElement: 0.6875, Quantized: true},    // 5.5 bpw
	GGMLTypeQ6_K: {Name: "Q6_K", BytesPerElement: 0.8203125, Quantized: true}, // 6.5625 bpw
	GGMLTypeQ8_K: {Name: "Q8_K", BytesPerElement: 1.140625, Quantized: true},  // 9.125 bpw

	// Importance quants.
	GGMLTypeIQ1_S:   {Name: "IQ1_S", BytesPerElement: 0.1953125, Quantized: true},   // 1.5625 bpw
	GGMLTypeIQ1_M:   {Name: "IQ1_M", BytesPerElement: 0.21875, Quantized: true},     // 1.75 bpw
	GGMLTypeIQ2_XXS: {Name: "IQ2_XXS", BytesPerElement: 0.2578125, Quantized: true}, // 2.0625 bpw
	GGMLTypeIQ2_XS:  {Name: "IQ2_XS", BytesPerElement: 0.2890625, Quantized: true},  // 2.3125 bpw
	GGMLTypeIQ2_S:   {Name: "IQ2_S", BytesPerElement: 0.3125, Quantized: true},      // 2.5 bpw
	GGMLTypeIQ3_XXS: {Name: "IQ3_XXS", BytesPerElement: 0.3828125, Quantized: true}, // 3.0625 bpw
	GGMLTypeIQ3_S:   {Name: "IQ3_S", BytesPerElement: 0.4296875, Quantized: true},   // 3.4375 bpw
	GGMLTypeIQ4_NL:  {Name: "IQ4_NL", BytesPerElement: 0.53125, Quantized: true},    // 4.25 bpw
	GGMLTypeIQ4_XS:  {Name: "IQ4_XS", BytesPerElement: 0.53125, Quantized: true},    // 4.25 bpw

	GGMLTypeQ1_58: {Name: "Q1_58", BytesPerElement: 0.1975, Quantized: true}, // 1.58/8
}

// Trait returns the catalog entry for t.
func (t GGMLType) Trait() (TypeTrait, bool) {
	tr, ok := typeTraits[t]
	return tr, ok
}

// Valid reports whether t is in the catalog.
func (t GGMLType) Valid() bool {
	_, ok := typeTraits[t]
	return ok
}

// BytesPerElement returns 0 for unknown types.
func (t GGMLType) BytesPerElement() float64 {
	return typeTraits[t].BytesPerElement
}

func (t GGMLType) IsQuantized() bool {
	return typeTraits[t].Quantized
}

// BitsPerWeight is BytesPerElement expressed in bits.
func (t GGMLType) BitsPerWeight() float64 {
	return t.BytesPerElement() * 8
}

func (t GGMLType) String() string {
	if tr, ok := typeTraits[t]; ok {
		return tr.Name
	}
	return fmt.Sprintf("unknown(%d)", uint32(t))
}

// Types lists every catalogued type in tag order.
func Types() []GGMLType {
	out := make([]GGMLType, 0, len(typeTraits))
	for t := range typeTraits {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
