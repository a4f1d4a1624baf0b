package safetensors

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawFile(header string, payload int) []byte {
	out := make([]byte, 8, 8+len(header)+payload)
	binary.LittleEndian.PutUint64(out, uint64(len(header)))
	out = append(out, header...)
	return append(out, make([]byte, payload)...)
}

func TestRoundTrip(t *testing.T) {
	src := &File{
		Metadata: map[string]string{"format": "pt"},
		Tensors: []TensorInfo{
			{Name: "model.layers.1.mlp.up_proj.weight", DType: "BF16", Shape: []uint64{8, 4}, DataOffsets: [2]uint64{0, 64}},
			{Name: "model.embed_tokens.weight", DType: "F32", Shape: []uint64{16, 4}, DataOffsets: [2]uint64{0, 256}},
			{Name: "model.norm.weight", DType: "F16", Shape: []uint64{4}, DataOffsets: [2]uint64{0, 8}},
		},
	}
	data, err := Encode(src)
	require.NoError(t, err)

	f, err := Decode(data, 0)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"format": "pt"}, f.Metadata)
	assert.Zero(t, f.HeaderSize%8, "header padded to 8 bytes")
	require.Len(t, f.Tensors, 3)

	names := []string{f.Tensors[0].Name, f.Tensors[1].Name, f.Tensors[2].Name}
	assert.Equal(t, []string{
		"model.embed_tokens.weight",
		"model.layers.1.mlp.up_proj.weight",
		"model.norm.weight",
	}, names)

	embed := f.Tensors[0]
	assert.Equal(t, "F32", embed.DType)
	assert.Equal(t, []uint64{16, 4}, embed.Shape)
	assert.Equal(t, uint64(256), embed.Size())
	assert.Equal(t, uint64(64), embed.Elements())
	assert.Equal(t, [2]uint64{0, 256}, embed.DataOffsets)
	assert.Equal(t, [2]uint64{256, 320}, f.Tensors[1].DataOffsets)
}

func TestScalarTensor(t *testing.T) {
	f, err := Decode(rawFile(`{"bias":{"dtype":"F32","shape":[],"data_offsets":[0,4]}}`, 4), 0)
	require.NoError(t, err)
	require.Len(t, f.Tensors, 1)
	assert.Equal(t, uint64(1), f.Tensors[0].Elements())
	assert.Nil(t, f.Metadata)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		max  int64
		kind error
	}{
		{"short prefix", []byte{1, 2, 3}, 0, ErrTruncated},
		{"header past end", rawFile(`{}`, 0)[:9], 0, ErrTruncated},
		{"header over cap", rawFile(`{"a":{"dtype":"F32","shape":[1],"data_offsets":[0,4]}}`, 4), 16, ErrHeaderTooLarge},
		{"bad json", rawFile(`{"a":`, 0), 0, ErrInvalidHeader},
		{"bad metadata", rawFile(`{"__metadata__":{"n":1}}`, 0), 0, ErrInvalidHeader},
		{"missing dtype", rawFile(`{"a":{"shape":[1],"data_offsets":[0,4]}}`, 4), 0, ErrInvalidHeader},
		{"reversed offsets", rawFile(`{"a":{"dtype":"F32","shape":[1],"data_offsets":[4,0]}}`, 4), 0, ErrInvalidOffsets},
		{"offsets past payload", rawFile(`{"a":{"dtype":"F32","shape":[2],"data_offsets":[0,8]}}`, 4), 0, ErrInvalidOffsets},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data, tt.max)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			var se *Error
			assert.ErrorAs(t, err, &se)
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Kind: ErrInvalidOffsets, Tensor: "w", Detail: "[4, 0)"}
	assert.Equal(t, `safetensors: invalid data offsets (tensor "w"): [4, 0)`, err.Error())
	assert.Equal(t, "offsets", KindName(err))
	assert.Equal(t, "other", KindName(os.ErrNotExist))
}

func TestReadFile(t *testing.T) {
	data, err := Encode(&File{Tensors: []TensorInfo{
		{Name: "w", DType: "F16", Shape: []uint64{2, 2}, DataOffsets: [2]uint64{0, 8}},
	}})
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "model.safetensors")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	f, err := ReadFile(path, 0)
	require.NoError(t, err)
	assert.Len(t, f.Tensors, 1)

	_, err = ReadFile(filepath.Join(dir, "missing.safetensors"), 0)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadIndex(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, IndexFileName)
	index := `{
  "metadata": {"total_size": 1024},
  "weight_map": {
    "lm_head.weight": "model-00002-of-00002.safetensors",
    "model.embed_tokens.weight": "model-00001-of-00002.safetensors",
    "model.norm.weight": "model-00002-of-00002.safetensors"
  }
}`
	require.NoError(t, os.WriteFile(path, []byte(index), 0o644))

	ix, err := ReadIndex(path)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"model-00001-of-00002.safetensors",
		"model-00002-of-00002.safetensors",
	}, ix.Shards())
	assert.EqualValues(t, 1024, ix.Metadata["total_size"])

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"weight_map":{}}`), 0o644))
	_, err = ReadIndex(empty)
	assert.ErrorIs(t, err, ErrInvalidHeader)

	_, err = ReadIndex(filepath.Join(dir, "nope.json"))
	assert.Error(t, err)
}
