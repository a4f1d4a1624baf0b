package safetensors

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
)

// Encode lays out f as a safetensors file. Tensors are written in name
// order with contiguous offsets recomputed from Size(); the payload is
// zero-filled.
func Encode(f *File) ([]byte, error) {
	tensors := append([]TensorInfo(nil), f.Tensors...)
	sort.Slice(tensors, func(i, j int) bool { return tensors[i].Name < tensors[j].Name })

	header := make(map[string]any, len(tensors)+1)
	if len(f.Metadata) > 0 {
		header[metadataKey] = f.Metadata
	}
	var offset uint64
	for _, t := range tensors {
		size := t.Size()
		t.DataOffsets = [2]uint64{offset, offset + size}
		if t.Shape == nil {
			t.Shape = []uint64{}
		}
		header[t.Name] = t
		offset += size
	}

	js, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("safetensors: encoding header: %w", err)
	}
	// Pad the header with spaces so the payload starts 8-byte aligned.
	if pad := (8 - len(js)%8) % 8; pad > 0 {
		js = append(js, bytes.Repeat([]byte(" "), pad)...)
	}

	out := make([]byte, 8, 8+len(js)+int(offset))
	binary.LittleEndian.PutUint64(out, uint64(len(js)))
	out = append(out, js...)
	out = append(out, make([]byte, offset)...)
	return out, nil
}
