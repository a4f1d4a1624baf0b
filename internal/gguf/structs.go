package gguf

import "fmt"

const (
	GGUFMagic   = 0x46554747 // "GGUF"
	GGUFVersion = 3

	DefaultAlignment = 32
	// MaxAlignment bounds general.alignment when encoding.
	MaxAlignment = 1 << 20
)

// ValueType is the on-disk tag of a metadata value.
type ValueType uint32

const (
	ValueTypeUint8   ValueType = 0
	ValueTypeInt8    ValueType = 1
	ValueTypeUint16  ValueType = 2
	ValueTypeInt16   ValueType = 3
	ValueTypeUint32  ValueType = 4
	ValueTypeInt32   ValueType = 5
	ValueTypeFloat32 ValueType = 6
	ValueTypeBool    ValueType = 7
	ValueTypeString  ValueType = 8
	ValueTypeArray   ValueType = 9
	ValueTypeUint64  ValueType = 10
	ValueTypeInt64   ValueType = 11
	ValueTypeFloat64 ValueType = 12
)

var valueTypeLabels = [...]string{
	ValueTypeUint8:   "u8",
	ValueTypeInt8:    "i8",
	ValueTypeUint16:  "u16",
	ValueTypeInt16:   "i16",
	ValueTypeUint32:  "u32",
	ValueTypeInt32:   "i32",
	ValueTypeFloat32: "f32",
	ValueTypeBool:    "bool",
	ValueTypeString:  "string",
	ValueTypeArray:   "array",
	ValueTypeUint64:  "u64",
	ValueTypeInt64:   "i64",
	ValueTypeFloat64: "f64",
}

// Valid reports whether t is one of the 13 defined value types.
func (t ValueType) Valid() bool {
	return t <= ValueTypeFloat64
}

func (t ValueType) String() string {
	if t.Valid() {
		return valueTypeLabels[t]
	}
	return fmt.Sprintf("unknown(%d)", uint32(t))
}

type Header struct {
	Magic       uint32
	Version     uint32
	TensorCount uint64
	KVCount     uint64
}

// KV is one metadata entry in file order.
type KV struct {
	Key   string
	Value Value
}

type TensorInfo struct {
	Name       string
	Dimensions []uint64 // ne (number of elements) in each dimension
	Type       GGMLType
	Offset     uint64 // Offset relative to data start
}

// Elements returns the product of the dimensions. A tensor without
// dimensions is a scalar and has one element.
func (t *TensorInfo) Elements() uint64 {
	n := uint64(1)
	for _, d := range t.Dimensions {
		n *= d
	}
	return n
}

// SizeBytes approximates the payload size from the catalog's
// bytes-per-element. Block padding is not modeled.
func (t *TensorInfo) SizeBytes() uint64 {
	return uint64(float64(t.Elements()) * t.Type.BytesPerElement())
}

type File struct {
	Header   Header
	Metadata []KV
	Tensors  []TensorInfo

	// HeaderSize is the number of bytes consumed by the header, the
	// metadata section and the tensor records.
	HeaderSize uint64
}

// KV returns the metadata as a map. Later duplicates overwrite earlier
// ones.
func (f *File) KV() map[string]Value {
	m := make(map[string]Value, len(f.Metadata))
	for _, kv := range f.Metadata {
		m[kv.Key] = kv.Value
	}
	return m
}

// Lookup returns the last value stored under key.
func (f *File) Lookup(key string) (Value, bool) {
	for i := len(f.Metadata) - 1; i >= 0; i-- {
		if f.Metadata[i].Key == key {
			return f.Metadata[i].Value, true
		}
	}
	return Value{}, false
}
