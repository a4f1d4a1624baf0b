package gguf

import (
	"fmt"
	"sort"
	"strings"
)

// Summary condenses the well-known general.* and <arch>.* keys and the
// tensor table of one file.
type Summary struct {
	Version         uint32
	Architecture    string
	ModelName       string
	Alignment       uint64
	ContextLength   uint64
	EmbeddingLength uint64
	BlockCount      uint64
	HeadCount       uint64
	HeadCountKV     uint64
	ExpertCount     uint64
	TensorCount     int
	MetadataCount   int
	TotalParameters uint64
	TotalSize       uint64
	TypeCounts      map[GGMLType]int
	// DominantType is the type holding the most bytes.
	DominantType GGMLType
}

// Summarize builds a Summary. Missing keys leave zero values, except the
// alignment which defaults to 32.
func Summarize(f *File) Summary {
	s := Summary{
		Version:       f.Header.Version,
		TensorCount:   len(f.Tensors),
		MetadataCount: len(f.Metadata),
		Alignment:     DefaultAlignment,
		TypeCounts:    make(map[GGMLType]int),
	}

	if v, ok := f.Lookup("general.architecture"); ok {
		s.Architecture, _ = v.Str()
	}
	if v, ok := f.Lookup("general.name"); ok {
		s.ModelName, _ = v.Str()
	}
	if a := lookupUint(f, "general.alignment"); a != 0 {
		s.Alignment = a
	}

	arch := s.Architecture
	s.ContextLength = lookupUint(f, arch+".context_length", "general.context_length")
	s.EmbeddingLength = lookupUint(f, arch+".embedding_length", arch+".hidden_size")
	s.BlockCount = lookupUint(f, arch+".block_count")
	s.HeadCount = lookupUint(f, arch+".attention.head_count")
	s.HeadCountKV = lookupUint(f, arch+".attention.head_count_kv")
	if s.HeadCountKV == 0 {
		s.HeadCountKV = s.HeadCount
	}
	s.ExpertCount = lookupUint(f, arch+".expert_count")

	bytesByType := make(map[GGMLType]uint64)
	for i := range f.Tensors {
		t := &f.Tensors[i]
		s.TotalParameters += t.Elements()
		size := t.SizeBytes()
		s.TotalSize += size
		s.TypeCounts[t.Type]++
		bytesByType[t.Type] += size
	}

	var best uint64
	for _, t := range Types() {
		if b, ok := bytesByType[t]; ok && (b > best || best == 0) {
			best, s.DominantType = b, t
		}
	}
	return s
}

// BitsPerWeight is the average storage cost over all tensors.
func (s Summary) BitsPerWeight() float64 {
	if s.TotalParameters == 0 {
		return 0
	}
	return float64(s.TotalSize) * 8 / float64(s.TotalParameters)
}

func (s Summary) String() string {
	types := make([]GGMLType, 0, len(s.TypeCounts))
	for t := range s.TypeCounts {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = fmt.Sprintf("%s:%d", t, s.TypeCounts[t])
	}

	return fmt.Sprintf(`GGUF v%d
Architecture:     %s
Model Name:       %s
Context Length:   %d
Embedding Length: %d
Blocks:           %d
Heads:            %d (kv %d)
Experts:          %d
Alignment:        %d
Metadata Entries: %d
Tensors:          %d [%s]
Parameters:       %d
Size:             %d bytes (%.2f bpw, mostly %s)
`,
		s.Version,
		s.Architecture,
		s.ModelName,
		s.ContextLength,
		s.EmbeddingLength,
		s.BlockCount,
		s.HeadCount, s.HeadCountKV,
		s.ExpertCount,
		s.Alignment,
		s.MetadataCount,
		s.TensorCount, strings.Join(parts, " "),
		s.TotalParameters,
		s.TotalSize, s.BitsPerWeight(), s.DominantType,
	)
}

func lookupUint(f *File, keys ...string) uint64 {
	for _, key := range keys {
		if v, ok := f.Lookup(key); ok {
			if u, ok := v.Uint(); ok {
				return u
			}
		}
	}
	return 0
}
