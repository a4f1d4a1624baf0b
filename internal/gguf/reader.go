package gguf

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"time"
	"unicode/utf8"

	"github.com/23skdu/longbow-lens/internal/logger"
	"github.com/23skdu/longbow-lens/internal/metrics"
)

// ReadFile reads the whole file into memory and decodes it.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	metrics.RecordBytesRead("gguf", len(data))

	start := time.Now()
	f, err := Decode(data)
	metrics.RecordDecode("gguf", time.Since(start), err)
	if err != nil {
		metrics.RecordDecodeError(KindName(err))
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	logger.Log.Debug("gguf decoded",
		"path", path,
		"version", f.Header.Version,
		"tensors", f.Header.TensorCount,
		"kv", f.Header.KVCount,
		"header_bytes", f.HeaderSize,
		"file_bytes", len(data),
	)
	metrics.RecordEntries(len(f.Tensors), len(f.Metadata))
	return f, nil
}

// Decode parses the header, the metadata section and the tensor records
// from data. The tensor payload is never read. Errors are *DecodeError.
func Decode(data []byte) (*File, error) {
	d := &decoder{data: data}

	magic, err := d.u32("header.magic")
	if err != nil {
		return nil, err
	}
	if magic != GGUFMagic {
		return nil, &DecodeError{
			Kind:   ErrInvalidMagic,
			Offset: 0,
			Field:  "header.magic",
			Detail: fmt.Sprintf("got %#08x", magic),
		}
	}

	file := &File{Header: Header{Magic: magic}}
	if file.Header.Version, err = d.u32("header.version"); err != nil {
		return nil, err
	}
	if file.Header.TensorCount, err = d.u64("header.tensor_count"); err != nil {
		return nil, err
	}
	if file.Header.KVCount, err = d.u64("header.kv_count"); err != nil {
		return nil, err
	}

	// Counts are untrusted; every entry takes at least 12 bytes, so cap
	// preallocation by what the buffer could hold.
	file.Metadata = make([]KV, 0, d.capFor(file.Header.KVCount, 12))
	for i := uint64(0); i < file.Header.KVCount; i++ {
		kv, err := d.kv(i)
		if err != nil {
			return nil, err
		}
		file.Metadata = append(file.Metadata, kv)
	}

	file.Tensors = make([]TensorInfo, 0, d.capFor(file.Header.TensorCount, 24))
	for i := uint64(0); i < file.Header.TensorCount; i++ {
		ti, err := d.tensor(i)
		if err != nil {
			return nil, err
		}
		file.Tensors = append(file.Tensors, ti)
	}

	file.HeaderSize = d.off
	return file, nil
}

type decoder struct {
	data []byte
	off  uint64
}

func (d *decoder) remaining() uint64 {
	return uint64(len(d.data)) - d.off
}

func (d *decoder) capFor(count, minSize uint64) int {
	if limit := d.remaining() / minSize; count > limit {
		count = limit
	}
	return int(count)
}

// take returns the next n bytes or a truncation error naming field.
func (d *decoder) take(n uint64, field string) ([]byte, error) {
	if n > d.remaining() {
		return nil, &DecodeError{
			Kind:   ErrTruncated,
			Offset: d.off,
			Field:  field,
			Detail: fmt.Sprintf("need %d bytes, have %d", n, d.remaining()),
		}
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *decoder) u8(field string) (uint8, error) {
	b, err := d.take(1, field)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *decoder) u16(field string) (uint16, error) {
	b, err := d.take(2, field)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (d *decoder) u32(field string) (uint32, error) {
	b, err := d.take(4, field)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *decoder) u64(field string) (uint64, error) {
	b, err := d.take(8, field)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (d *decoder) str(field string) (string, error) {
	n, err := d.u64(field + ".len")
	if err != nil {
		return "", err
	}
	start := d.off
	b, err := d.take(n, field)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", &DecodeError{Kind: ErrInvalidUTF8, Offset: start, Field: field}
	}
	return string(b), nil
}

func (d *decoder) valueType(field string) (ValueType, error) {
	start := d.off
	raw, err := d.u32(field)
	if err != nil {
		return 0, err
	}
	t := ValueType(raw)
	if !t.Valid() {
		return 0, &DecodeError{
			Kind:   ErrUnknownValueType,
			Offset: start,
			Field:  field,
			Detail: fmt.Sprintf("tag %d", raw),
		}
	}
	return t, nil
}

func (d *decoder) kv(i uint64) (KV, error) {
	field := fmt.Sprintf("metadata[%d]", i)
	key, err := d.str(field + ".key")
	if err != nil {
		return KV{}, err
	}
	field = fmt.Sprintf("metadata[%d] %q", i, key)
	typ, err := d.valueType(field + ".type")
	if err != nil {
		return KV{}, err
	}
	v, err := d.value(typ, field+".value")
	if err != nil {
		return KV{}, err
	}
	return KV{Key: key, Value: v}, nil
}

// minEncodedSize is the smallest number of bytes a value of type t
// occupies on disk.
func minEncodedSize(t ValueType) uint64 {
	switch t {
	case ValueTypeUint8, ValueTypeInt8, ValueTypeBool:
		return 1
	case ValueTypeUint16, ValueTypeInt16:
		return 2
	case ValueTypeUint32, ValueTypeInt32, ValueTypeFloat32:
		return 4
	case ValueTypeArray:
		return 12
	default:
		return 8
	}
}

func (d *decoder) value(t ValueType, field string) (Value, error) {
	switch t {
	case ValueTypeUint8:
		v, err := d.u8(field)
		return Uint8(v), err
	case ValueTypeInt8:
		v, err := d.u8(field)
		return Int8(int8(v)), err
	case ValueTypeUint16:
		v, err := d.u16(field)
		return Uint16(v), err
	case ValueTypeInt16:
		v, err := d.u16(field)
		return Int16(int16(v)), err
	case ValueTypeUint32:
		v, err := d.u32(field)
		return Uint32(v), err
	case ValueTypeInt32:
		v, err := d.u32(field)
		return Int32(int32(v)), err
	case ValueTypeFloat32:
		v, err := d.u32(field)
		return Float32(math.Float32frombits(v)), err
	case ValueTypeBool:
		v, err := d.u8(field)
		return Bool(v != 0), err
	case ValueTypeString:
		v, err := d.str(field)
		return String(v), err
	case ValueTypeUint64:
		v, err := d.u64(field)
		return Uint64(v), err
	case ValueTypeInt64:
		v, err := d.u64(field)
		return Int64(int64(v)), err
	case ValueTypeFloat64:
		v, err := d.u64(field)
		return Float64(math.Float64frombits(v)), err
	case ValueTypeArray:
		return d.array(field)
	}
	return Value{}, &DecodeError{Kind: ErrUnknownValueType, Offset: d.off, Field: field, Detail: fmt.Sprintf("tag %d", uint32(t))}
}

func (d *decoder) array(field string) (Value, error) {
	elem, err := d.valueType(field + ".elem_type")
	if err != nil {
		return Value{}, err
	}
	countOff := d.off
	n, err := d.u64(field + ".len")
	if err != nil {
		return Value{}, err
	}
	if minSize := minEncodedSize(elem); n > d.remaining()/minSize {
		return Value{}, &DecodeError{
			Kind:   ErrTruncated,
			Offset: countOff,
			Field:  field + ".len",
			Detail: fmt.Sprintf("%d %s elements cannot fit in %d bytes", n, elem, d.remaining()),
		}
	}

	arr := make([]Value, 0, n)
	for i := uint64(0); i < n; i++ {
		v, err := d.value(elem, fmt.Sprintf("%s[%d]", field, i))
		if err != nil {
			return Value{}, err
		}
		arr = append(arr, v)
	}
	return Array(elem, arr...), nil
}

func (d *decoder) tensor(i uint64) (TensorInfo, error) {
	field := fmt.Sprintf("tensor[%d]", i)
	name, err := d.str(field + ".name")
	if err != nil {
		return TensorInfo{}, err
	}
	field = fmt.Sprintf("tensor[%d] %q", i, name)

	dimsOff := d.off
	nDims, err := d.u32(field + ".n_dims")
	if err != nil {
		return TensorInfo{}, err
	}
	if uint64(nDims) > d.remaining()/8 {
		return TensorInfo{}, &DecodeError{
			Kind:   ErrTruncated,
			Offset: dimsOff,
			Field:  field + ".n_dims",
			Detail: fmt.Sprintf("%d dimensions cannot fit in %d bytes", nDims, d.remaining()),
		}
	}
	dims := make([]uint64, nDims)
	for j := range dims {
		if dims[j], err = d.u64(fmt.Sprintf("%s.dims[%d]", field, j)); err != nil {
			return TensorInfo{}, err
		}
	}

	typeOff := d.off
	rawType, err := d.u32(field + ".type")
	if err != nil {
		return TensorInfo{}, err
	}
	typ := GGMLType(rawType)
	if !typ.Valid() {
		return TensorInfo{}, &DecodeError{
			Kind:   ErrUnknownTensorType,
			Offset: typeOff,
			Field:  field + ".type",
			Detail: fmt.Sprintf("tag %d", rawType),
		}
	}

	offset, err := d.u64(field + ".offset")
	if err != nil {
		return TensorInfo{}, err
	}

	return TensorInfo{Name: name, Dimensions: dims, Type: typ, Offset: offset}, nil
}
