// Package export converts record sets to and from Arrow record batches.
package export

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/goccy/go-json"

	"github.com/23skdu/longbow-lens/internal/records"
)

// MetadataKey is the schema metadata key holding the JSON-encoded
// metadata entries of an exported tensor file.
const MetadataKey = "lens.metadata"

var tensorFields = []arrow.Field{
	{Name: "name", Type: arrow.BinaryTypes.String},
	{Name: "dtype", Type: arrow.BinaryTypes.String},
	{Name: "shape", Type: arrow.ListOf(arrow.PrimitiveTypes.Uint64)},
	{Name: "size", Type: arrow.PrimitiveTypes.Uint64},
	{Name: "elements", Type: arrow.PrimitiveTypes.Uint64},
}

var metadataFields = []arrow.Field{
	{Name: "key", Type: arrow.BinaryTypes.String},
	{Name: "value", Type: arrow.BinaryTypes.String},
	{Name: "type", Type: arrow.BinaryTypes.String},
}

func TensorSchema() *arrow.Schema {
	return arrow.NewSchema(tensorFields, nil)
}

func MetadataSchema() *arrow.Schema {
	return arrow.NewSchema(metadataFields, nil)
}

// TensorRecord builds one batch holding every tensor. The caller owns
// the returned record and must Release it.
func TensorRecord(mem memory.Allocator, schema *arrow.Schema, tensors []records.Tensor) arrow.Record {
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	names := b.Field(0).(*array.StringBuilder)
	dtypes := b.Field(1).(*array.StringBuilder)
	shapes := b.Field(2).(*array.ListBuilder)
	dims := shapes.ValueBuilder().(*array.Uint64Builder)
	sizes := b.Field(3).(*array.Uint64Builder)
	elems := b.Field(4).(*array.Uint64Builder)

	b.Reserve(len(tensors))
	for _, t := range tensors {
		names.Append(t.Name)
		dtypes.Append(t.DType)
		shapes.Append(true)
		dims.AppendValues(t.Shape, nil)
		sizes.Append(t.Size)
		elems.Append(t.Elements)
	}
	return b.NewRecord()
}

func MetadataRecord(mem memory.Allocator, md []records.Metadata) arrow.Record {
	b := array.NewRecordBuilder(mem, MetadataSchema())
	defer b.Release()

	keys := b.Field(0).(*array.StringBuilder)
	values := b.Field(1).(*array.StringBuilder)
	types := b.Field(2).(*array.StringBuilder)

	b.Reserve(len(md))
	for _, m := range md {
		keys.Append(m.Key)
		values.Append(m.Value)
		types.Append(m.Type)
	}
	return b.NewRecord()
}

// Tensors reads tensor rows back from a batch with the tensor schema.
func Tensors(rec arrow.Record) ([]records.Tensor, error) {
	if err := checkSchema(rec.Schema(), tensorFields); err != nil {
		return nil, err
	}
	names := rec.Column(0).(*array.String)
	dtypes := rec.Column(1).(*array.String)
	shapes := rec.Column(2).(*array.List)
	dims := shapes.ListValues().(*array.Uint64)
	sizes := rec.Column(3).(*array.Uint64)
	elems := rec.Column(4).(*array.Uint64)

	out := make([]records.Tensor, 0, rec.NumRows())
	for i := 0; i < int(rec.NumRows()); i++ {
		start, end := shapes.ValueOffsets(i)
		shape := make([]uint64, 0, end-start)
		for j := start; j < end; j++ {
			shape = append(shape, dims.Value(int(j)))
		}
		out = append(out, records.Tensor{
			Name:     names.Value(i),
			DType:    dtypes.Value(i),
			Shape:    shape,
			Size:     sizes.Value(i),
			Elements: elems.Value(i),
		})
	}
	return out, nil
}

func Metadata(rec arrow.Record) ([]records.Metadata, error) {
	if err := checkSchema(rec.Schema(), metadataFields); err != nil {
		return nil, err
	}
	keys := rec.Column(0).(*array.String)
	values := rec.Column(1).(*array.String)
	types := rec.Column(2).(*array.String)

	out := make([]records.Metadata, 0, rec.NumRows())
	for i := 0; i < int(rec.NumRows()); i++ {
		out = append(out, records.Metadata{
			Key:   keys.Value(i),
			Value: values.Value(i),
			Type:  types.Value(i),
		})
	}
	return out, nil
}

func checkSchema(got *arrow.Schema, want []arrow.Field) error {
	if got.NumFields() != len(want) {
		return fmt.Errorf("export: schema has %d fields, want %d", got.NumFields(), len(want))
	}
	for i, f := range want {
		g := got.Field(i)
		if g.Name != f.Name || !arrow.TypeEqual(g.Type, f.Type) {
			return fmt.Errorf("export: field %d is %s %s, want %s %s", i, g.Name, g.Type, f.Name, f.Type)
		}
	}
	return nil
}

// WriteFile writes the set as an Arrow IPC file: one tensor batch, with
// the metadata entries carried as JSON in the schema metadata.
func WriteFile(w io.Writer, set records.Set) error {
	mem := memory.NewGoAllocator()

	md := set.Metadata
	if md == nil {
		md = []records.Metadata{}
	}
	encoded, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("export: encoding metadata: %w", err)
	}
	meta := arrow.NewMetadata([]string{MetadataKey}, []string{string(encoded)})
	schema := arrow.NewSchema(tensorFields, &meta)

	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		return fmt.Errorf("export: creating writer: %w", err)
	}
	rec := TensorRecord(mem, schema, set.Tensors)
	defer rec.Release()

	if err := fw.Write(rec); err != nil {
		_ = fw.Close()
		return fmt.Errorf("export: writing batch: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("export: closing writer: %w", err)
	}
	return nil
}

// ReadFile reads a file produced by WriteFile.
func ReadFile(r ipc.ReadAtSeeker) (records.Set, error) {
	fr, err := ipc.NewFileReader(r, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return records.Set{}, fmt.Errorf("export: opening file: %w", err)
	}
	defer fr.Close()

	var set records.Set
	meta := fr.Schema().Metadata()
	if i := meta.FindKey(MetadataKey); i >= 0 {
		if err := json.Unmarshal([]byte(meta.Values()[i]), &set.Metadata); err != nil {
			return records.Set{}, fmt.Errorf("export: decoding metadata: %w", err)
		}
	}

	for i := 0; i < fr.NumRecords(); i++ {
		rec, err := fr.Record(i)
		if err != nil {
			return records.Set{}, fmt.Errorf("export: reading batch %d: %w", i, err)
		}
		tensors, err := Tensors(rec)
		if err != nil {
			return records.Set{}, err
		}
		set.Tensors = append(set.Tensors, tensors...)
	}
	return set, nil
}
