package gguf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Encode serializes f in GGUF layout: header, metadata, tensor records,
// then zero padding up to the alignment. The header counts are taken from
// the slices, not from f.Header. No tensor payload is written.
func Encode(f *File) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write is Encode onto w. A general.alignment that is not a power of two
// up to MaxAlignment is rejected before anything is written.
func Write(w io.Writer, f *File) error {
	align, err := alignment(f)
	if err != nil {
		return err
	}
	version := f.Header.Version
	if version == 0 {
		version = GGUFVersion
	}

	e := &encoder{w: w}
	e.u32(GGUFMagic)
	e.u32(version)
	e.u64(uint64(len(f.Tensors)))
	e.u64(uint64(len(f.Metadata)))

	for _, kv := range f.Metadata {
		e.str(kv.Key)
		e.u32(uint32(kv.Value.Type))
		e.value(kv.Value)
	}
	for _, t := range f.Tensors {
		e.str(t.Name)
		e.u32(uint32(len(t.Dimensions)))
		for _, d := range t.Dimensions {
			e.u64(d)
		}
		e.u32(uint32(t.Type))
		e.u64(t.Offset)
	}

	if pad := (align - e.n%align) % align; pad > 0 && e.err == nil {
		e.write(make([]byte, pad))
	}
	if e.err != nil {
		return fmt.Errorf("gguf: encoding: %w", e.err)
	}
	return nil
}

func alignment(f *File) (uint64, error) {
	v, ok := f.Lookup("general.alignment")
	if !ok {
		return DefaultAlignment, nil
	}
	a, ok := v.Uint()
	if !ok {
		return 0, fmt.Errorf("gguf: general.alignment has type %s, want an unsigned integer", v.Type)
	}
	if a == 0 || a > MaxAlignment || a&(a-1) != 0 {
		return 0, fmt.Errorf("gguf: general.alignment %d is not a power of two up to %d", a, MaxAlignment)
	}
	return a, nil
}

type encoder struct {
	w   io.Writer
	n   uint64
	err error
}

func (e *encoder) write(b []byte) {
	if e.err != nil {
		return
	}
	n, err := e.w.Write(b)
	e.n += uint64(n)
	e.err = err
}

func (e *encoder) u8(v uint8) { e.write([]byte{v}) }

func (e *encoder) u16(v uint16) {
	e.write(binary.LittleEndian.AppendUint16(nil, v))
}

func (e *encoder) u32(v uint32) {
	e.write(binary.LittleEndian.AppendUint32(nil, v))
}

func (e *encoder) u64(v uint64) {
	e.write(binary.LittleEndian.AppendUint64(nil, v))
}

func (e *encoder) str(s string) {
	e.u64(uint64(len(s)))
	e.write([]byte(s))
}

func (e *encoder) value(v Value) {
	switch v.Type {
	case ValueTypeUint8:
		e.u8(uint8(v.u))
	case ValueTypeInt8:
		e.u8(uint8(v.i))
	case ValueTypeUint16:
		e.u16(uint16(v.u))
	case ValueTypeInt16:
		e.u16(uint16(v.i))
	case ValueTypeUint32:
		e.u32(uint32(v.u))
	case ValueTypeInt32:
		e.u32(uint32(v.i))
	case ValueTypeFloat32:
		e.u32(math.Float32bits(float32(v.f)))
	case ValueTypeBool:
		if v.b {
			e.u8(1)
		} else {
			e.u8(0)
		}
	case ValueTypeString:
		e.str(v.s)
	case ValueTypeUint64:
		e.u64(v.u)
	case ValueTypeInt64:
		e.u64(uint64(v.i))
	case ValueTypeFloat64:
		e.u64(math.Float64bits(v.f))
	case ValueTypeArray:
		e.u32(uint32(v.Elem))
		e.u64(uint64(len(v.Arr)))
		for _, el := range v.Arr {
			e.value(el)
		}
	default:
		if e.err == nil {
			e.err = fmt.Errorf("%w: tag %d", ErrUnknownValueType, uint32(v.Type))
		}
	}
}
