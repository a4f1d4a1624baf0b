package export

import (
	"bytes"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/23skdu/longbow-lens/internal/records"
)

func sampleSet() records.Set {
	return records.Set{
		Tensors: []records.Tensor{
			{Name: "blk.0.attn_q.weight", DType: "Q4_K", Shape: []uint64{4096, 4096}, Size: 9437184, Elements: 16777216},
			{Name: "output_norm.weight", DType: "F32", Shape: []uint64{4096}, Size: 16384, Elements: 4096},
			{Name: "scalar", DType: "F32", Shape: []uint64{}, Size: 4, Elements: 1},
		},
		Metadata: []records.Metadata{
			{Key: "general.architecture", Value: `"llama"`, Type: "string"},
			{Key: "llama.block_count", Value: "32", Type: "u32"},
		},
	}
}

func TestTensorRecordRoundTrip(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	set := sampleSet()
	rec := TensorRecord(mem, TensorSchema(), set.Tensors)
	defer rec.Release()

	assert.EqualValues(t, 3, rec.NumRows())
	assert.EqualValues(t, 5, rec.NumCols())

	got, err := Tensors(rec)
	require.NoError(t, err)
	assert.Equal(t, set.Tensors, got)
}

func TestMetadataRecordRoundTrip(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	set := sampleSet()
	rec := MetadataRecord(mem, set.Metadata)
	defer rec.Release()

	got, err := Metadata(rec)
	require.NoError(t, err)
	assert.Equal(t, set.Metadata, got)
}

func TestSchemaMismatch(t *testing.T) {
	mem := memory.NewGoAllocator()
	rec := MetadataRecord(mem, sampleSet().Metadata)
	defer rec.Release()

	_, err := Tensors(rec)
	assert.ErrorContains(t, err, "fields")

	trec := TensorRecord(mem, TensorSchema(), nil)
	defer trec.Release()
	_, err = Metadata(trec)
	assert.Error(t, err)
}

func TestWriteReadFile(t *testing.T) {
	set := sampleSet()
	var buf bytes.Buffer
	require.NoError(t, WriteFile(&buf, set))

	got, err := ReadFile(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, set.Tensors, got.Tensors)
	assert.Equal(t, set.Metadata, got.Metadata)
}

func TestWriteReadEmptySet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFile(&buf, records.Set{}))

	got, err := ReadFile(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Empty(t, got.Tensors)
	assert.Empty(t, got.Metadata)
}

func TestReadFileRejectsGarbage(t *testing.T) {
	_, err := ReadFile(bytes.NewReader([]byte("not an arrow file")))
	assert.Error(t, err)
}

func TestShapeColumnType(t *testing.T) {
	f, ok := TensorSchema().FieldsByName("shape")
	require.True(t, ok)
	assert.True(t, arrow.TypeEqual(f[0].Type, arrow.ListOf(arrow.PrimitiveTypes.Uint64)))
}
