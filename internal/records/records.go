// Package records holds the format-independent view of a model file that
// the tree, the renderers and the exporters work from.
package records

import (
	"sort"

	"github.com/23skdu/longbow-lens/internal/gguf"
	"github.com/23skdu/longbow-lens/internal/natsort"
	"github.com/23skdu/longbow-lens/internal/safetensors"
)

type Tensor struct {
	Name     string   `json:"name"`
	DType    string   `json:"dtype"`
	Shape    []uint64 `json:"shape"`
	Size     uint64   `json:"size"`
	Elements uint64   `json:"elements"`
}

// Metadata is one file-level entry with its value already rendered.
type Metadata struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Type  string `json:"type"`
}

type Set struct {
	Tensors  []Tensor   `json:"tensors"`
	Metadata []Metadata `json:"metadata"`
}

func FromGGUF(f *gguf.File) Set {
	s := Set{
		Tensors:  make([]Tensor, 0, len(f.Tensors)),
		Metadata: make([]Metadata, 0, len(f.Metadata)),
	}
	for _, kv := range f.Metadata {
		s.Metadata = append(s.Metadata, Metadata{
			Key:   kv.Key,
			Value: kv.Value.String(),
			Type:  kv.Value.TypeLabel(),
		})
	}
	for i := range f.Tensors {
		t := &f.Tensors[i]
		s.Tensors = append(s.Tensors, Tensor{
			Name:     t.Name,
			DType:    t.Type.String(),
			Shape:    t.Dimensions,
			Size:     t.SizeBytes(),
			Elements: t.Elements(),
		})
	}
	return s
}

// FromSafetensors converts a decoded header. Metadata values are plain
// strings, so they are quoted like GGUF strings.
func FromSafetensors(f *safetensors.File) Set {
	s := Set{
		Tensors:  make([]Tensor, 0, len(f.Tensors)),
		Metadata: make([]Metadata, 0, len(f.Metadata)),
	}
	keys := make([]string, 0, len(f.Metadata))
	for k := range f.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s.Metadata = append(s.Metadata, Metadata{
			Key:   k,
			Value: gguf.String(f.Metadata[k]).String(),
			Type:  "string",
		})
	}
	for i := range f.Tensors {
		t := &f.Tensors[i]
		s.Tensors = append(s.Tensors, Tensor{
			Name:     t.Name,
			DType:    t.DType,
			Shape:    t.Shape,
			Size:     t.Size(),
			Elements: t.Elements(),
		})
	}
	return s
}

// Merge concatenates sets in order, keeps the first tensor seen for each
// name and the first metadata entry seen for each key, then sorts the
// tensors naturally by full name.
func Merge(sets ...Set) Set {
	var out Set
	seenTensors := make(map[string]struct{})
	seenKeys := make(map[string]struct{})
	for _, s := range sets {
		for _, t := range s.Tensors {
			if _, ok := seenTensors[t.Name]; ok {
				continue
			}
			seenTensors[t.Name] = struct{}{}
			out.Tensors = append(out.Tensors, t)
		}
		for _, m := range s.Metadata {
			if _, ok := seenKeys[m.Key]; ok {
				continue
			}
			seenKeys[m.Key] = struct{}{}
			out.Metadata = append(out.Metadata, m)
		}
	}
	natsort.SortBy(out.Tensors, func(t Tensor) string { return t.Name })
	return out
}

// TotalParameters sums the element counts of all tensors.
func (s Set) TotalParameters() uint64 {
	var n uint64
	for _, t := range s.Tensors {
		n += t.Elements
	}
	return n
}

func (s Set) TotalSize() uint64 {
	var n uint64
	for _, t := range s.Tensors {
		n += t.Size
	}
	return n
}

// DTypes counts tensors per dtype label.
func (s Set) DTypes() map[string]int {
	m := make(map[string]int)
	for _, t := range s.Tensors {
		m[t.DType]++
	}
	return m
}
