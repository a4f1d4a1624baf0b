// Package safetensors reads the header of safetensors files:
//
//	[8 bytes: header_size (uint64 LE)]
//	[header_size bytes: JSON header]
//	[tensor data: raw bytes]
//
// Tensor payloads are never interpreted.
package safetensors

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/goccy/go-json"

	"github.com/23skdu/longbow-lens/internal/logger"
	"github.com/23skdu/longbow-lens/internal/metrics"
)

// DefaultMaxHeaderBytes is the header cap used when none is given.
const DefaultMaxHeaderBytes = 100 << 20

const metadataKey = "__metadata__"

var (
	ErrHeaderTooLarge = errors.New("header too large")
	ErrTruncated      = errors.New("truncated input")
	ErrInvalidHeader  = errors.New("invalid header")
	ErrInvalidOffsets = errors.New("invalid data offsets")
)

// Error reports a malformed file. Tensor is set when the problem is
// specific to one entry.
type Error struct {
	Kind   error
	Tensor string
	Detail string
}

func (e *Error) Error() string {
	msg := "safetensors: " + e.Kind.Error()
	if e.Tensor != "" {
		msg += fmt.Sprintf(" (tensor %q)", e.Tensor)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// KindName is a short stable label for metrics and logs.
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrHeaderTooLarge):
		return "header_too_large"
	case errors.Is(err, ErrTruncated):
		return "truncated"
	case errors.Is(err, ErrInvalidHeader):
		return "header_json"
	case errors.Is(err, ErrInvalidOffsets):
		return "offsets"
	default:
		return "other"
	}
}

type TensorInfo struct {
	Name        string    `json:"-"`
	DType       string    `json:"dtype"`
	Shape       []uint64  `json:"shape"`
	DataOffsets [2]uint64 `json:"data_offsets"` // [start, end) relative to the payload
}

// Elements is the product of the shape; a scalar has one element.
func (t *TensorInfo) Elements() uint64 {
	n := uint64(1)
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Size is the payload byte length.
func (t *TensorInfo) Size() uint64 {
	return t.DataOffsets[1] - t.DataOffsets[0]
}

type File struct {
	HeaderSize uint64
	Metadata   map[string]string
	// Tensors are sorted by name.
	Tensors []TensorInfo
}

// ReadFile reads the whole file and decodes its header. maxHeader <= 0
// selects DefaultMaxHeaderBytes.
func ReadFile(path string, maxHeader int64) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	metrics.RecordBytesRead("safetensors", len(data))

	start := time.Now()
	f, err := Decode(data, maxHeader)
	metrics.RecordDecode("safetensors", time.Since(start), err)
	if err != nil {
		metrics.RecordDecodeError(KindName(err))
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	logger.Log.Debug("safetensors decoded",
		"path", path,
		"tensors", len(f.Tensors),
		"metadata", len(f.Metadata),
		"header_bytes", f.HeaderSize,
	)
	metrics.RecordEntries(len(f.Tensors), len(f.Metadata))
	return f, nil
}

// Decode parses the length prefix and JSON header of data and checks
// every tensor's offsets against the payload length.
func Decode(data []byte, maxHeader int64) (*File, error) {
	if maxHeader <= 0 {
		maxHeader = DefaultMaxHeaderBytes
	}
	if len(data) < 8 {
		return nil, &Error{Kind: ErrTruncated, Detail: fmt.Sprintf("need 8 bytes for the header size, have %d", len(data))}
	}

	n := binary.LittleEndian.Uint64(data)
	if n > uint64(maxHeader) {
		return nil, &Error{Kind: ErrHeaderTooLarge, Detail: fmt.Sprintf("%d bytes exceeds the %d byte limit", n, maxHeader)}
	}
	if n > uint64(len(data)-8) {
		return nil, &Error{Kind: ErrTruncated, Detail: fmt.Sprintf("header claims %d bytes, have %d", n, len(data)-8)}
	}
	payload := uint64(len(data)-8) - n

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data[8:8+n], &raw); err != nil {
		return nil, &Error{Kind: ErrInvalidHeader, Detail: err.Error()}
	}

	f := &File{HeaderSize: n, Tensors: make([]TensorInfo, 0, len(raw))}
	for name, msg := range raw {
		if name == metadataKey {
			if err := json.Unmarshal(msg, &f.Metadata); err != nil {
				return nil, &Error{Kind: ErrInvalidHeader, Detail: "__metadata__ must map strings to strings"}
			}
			continue
		}

		var ti TensorInfo
		if err := json.Unmarshal(msg, &ti); err != nil {
			return nil, &Error{Kind: ErrInvalidHeader, Tensor: name, Detail: err.Error()}
		}
		if ti.DType == "" {
			return nil, &Error{Kind: ErrInvalidHeader, Tensor: name, Detail: "missing dtype"}
		}
		start, end := ti.DataOffsets[0], ti.DataOffsets[1]
		if end < start || end > payload {
			return nil, &Error{
				Kind:   ErrInvalidOffsets,
				Tensor: name,
				Detail: fmt.Sprintf("[%d, %d) outside a %d byte payload", start, end, payload),
			}
		}
		ti.Name = name
		f.Tensors = append(f.Tensors, ti)
	}

	sort.Slice(f.Tensors, func(i, j int) bool { return f.Tensors[i].Name < f.Tensors[j].Name })
	return f, nil
}
