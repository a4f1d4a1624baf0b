package tree

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/23skdu/longbow-lens/internal/records"
)

func tensors(names ...string) []records.Tensor {
	out := make([]records.Tensor, len(names))
	for i, n := range names {
		out[i] = records.Tensor{Name: n, DType: "F32", Shape: []uint64{uint64(i + 1)}, Size: uint64(4 * (i + 1)), Elements: uint64(i + 1)}
	}
	return out
}

func names(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name()
	}
	return out
}

func rowNames(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = fmt.Sprintf("%d:%s", r.Depth, r.Node.Name())
	}
	return out
}

func TestBuildSimple(t *testing.T) {
	f := Build(tensors("a.w", "a.b", "c"), nil)

	require.Len(t, f, 2)
	assert.Equal(t, []string{"a", "c"}, names(f))

	a, ok := f[0].(*Group)
	require.True(t, ok)
	assert.True(t, a.Expanded, "top-level groups start expanded")
	assert.Equal(t, []string{"b", "w"}, names(a.Children))
	assert.Equal(t, 2, a.TensorCount)
	assert.Equal(t, uint64(4+8), a.TotalSize)

	c, ok := f[1].(*Tensor)
	require.True(t, ok)
	assert.Equal(t, "c", c.Record.Name)

	b := a.Children[0].(*Tensor)
	assert.Equal(t, "a.b", b.Record.Name, "leaf keeps the full record")
}

func TestBuildEmpty(t *testing.T) {
	assert.Empty(t, Build(nil, nil))
	assert.Empty(t, Flatten(Build(nil, nil)))
}

func TestBuildNaturalOrder(t *testing.T) {
	f := Build(tensors("layer2.weight", "layer10.weight", "layer1.weight"), nil)
	assert.Equal(t, []string{"layer1", "layer2", "layer10"}, names(f))

	f = Build(tensors("blk.10.w", "blk.2.w", "blk.1.w", "blk.0.w"), nil)
	blk := f[0].(*Group)
	assert.Equal(t, []string{"0", "1", "2", "10"}, names(blk.Children))
}

func TestBuildNestedAggregates(t *testing.T) {
	in := []records.Tensor{
		{Name: "model.layers.0.attn.q.weight", Size: 100},
		{Name: "model.layers.0.attn.k.weight", Size: 50},
		{Name: "model.layers.0.mlp.up.weight", Size: 400},
		{Name: "model.layers.1.attn.q.weight", Size: 100},
		{Name: "model.norm.weight", Size: 8},
		{Name: "lm_head.weight", Size: 1000},
	}
	f := Build(in, nil)
	require.Equal(t, []string{"lm_head", "model"}, names(f))

	model := f[1].(*Group)
	assert.Equal(t, 5, model.TensorCount)
	assert.Equal(t, uint64(658), model.TotalSize)
	assert.Equal(t, []string{"layers", "norm"}, names(model.Children))

	layers := model.Children[0].(*Group)
	assert.False(t, layers.Expanded, "nested groups start collapsed")
	assert.Equal(t, 4, layers.TensorCount)
	assert.Equal(t, uint64(650), layers.TotalSize)

	layer0 := layers.Children[0].(*Group)
	assert.Equal(t, 3, layer0.TensorCount)
	attn := layer0.Children[0].(*Group)
	assert.Equal(t, "attn", attn.Name())
	assert.Equal(t, 2, attn.TensorCount)
	assert.Equal(t, uint64(150), attn.TotalSize)

	n, size := Totals(f)
	assert.Equal(t, 6, n)
	assert.Equal(t, uint64(1658), size)
}

func TestBuildMetadataGroup(t *testing.T) {
	meta := []records.Metadata{
		{Key: "llama.block_count", Value: "32", Type: "u32"},
		{Key: "general.architecture", Value: `"llama"`, Type: "string"},
		{Key: "general.alignment", Value: "32", Type: "u32"},
	}
	f := Build(tensors("a.w"), meta)

	require.Len(t, f, 2)
	g := f[0].(*Group)
	assert.Equal(t, MetadataGroupName, g.Name())
	assert.False(t, g.Expanded)
	assert.Zero(t, g.TensorCount)
	assert.Zero(t, g.TotalSize)
	assert.Equal(t, []string{"general.alignment", "general.architecture", "llama.block_count"}, names(g.Children))

	n, size := Totals(f)
	assert.Equal(t, 1, n)
	assert.Equal(t, uint64(4), size)

	onlyMeta := Build(nil, meta)
	require.Len(t, onlyMeta, 1)
	assert.Equal(t, MetadataGroupName, onlyMeta[0].Name())
}

func TestFlattenCollapsed(t *testing.T) {
	f := Build(tensors("root.g.a", "root.g.b", "root.g.c", "root.g.d", "root.g.e"), nil)

	rows := Flatten(f)
	assert.Equal(t, []string{"0:root", "1:g"}, rowNames(rows))

	g := FindGroup(f, "g")
	require.NotNil(t, g)
	assert.Equal(t, 5, g.TensorCount)

	require.True(t, ToggleIndex(f, 1))
	rows = Flatten(f)
	assert.Equal(t, []string{"0:root", "1:g", "2:a", "2:b", "2:c", "2:d", "2:e"}, rowNames(rows))

	require.True(t, ToggleIndex(f, 1))
	assert.Len(t, Flatten(f), 2)
}

func TestFlattenCollapsedGroupIsOneRow(t *testing.T) {
	f := Build(tensors("g.a", "g.b", "g.c", "g.d", "g.e"), nil)
	g := f[0].(*Group)
	g.Expanded = false
	assert.Len(t, Flatten(f), 1)

	require.True(t, ToggleName(f, "g"))
	assert.Len(t, Flatten(f), 6)
}

func TestToggleIndex(t *testing.T) {
	f := Build(tensors("a.x.w", "a.y.w", "b"), nil)
	// 0:a 1:x 2:y 3:b
	assert.Equal(t, []string{"0:a", "1:x", "1:y", "0:b"}, rowNames(Flatten(f)))

	assert.False(t, ToggleIndex(f, 3), "leaf rows are not togglable")
	assert.False(t, ToggleIndex(f, 4), "past the end")
	assert.False(t, ToggleIndex(f, -1))

	assert.True(t, ToggleIndex(f, 2))
	assert.Equal(t, []string{"0:a", "1:x", "1:y", "2:w", "0:b"}, rowNames(Flatten(f)))

	// Collapsing a hides y's leaf; b moves to row 1.
	assert.True(t, ToggleIndex(f, 0))
	assert.Equal(t, []string{"0:a", "0:b"}, rowNames(Flatten(f)))
	assert.False(t, ToggleIndex(f, 1))

	y := FindGroup(f, "y")
	assert.True(t, y.Expanded, "hidden groups keep their state")
}

func TestToggleName(t *testing.T) {
	f := Build(tensors("a.x.w", "b.x.w", "b.z.w"), nil)

	assert.False(t, ToggleName(f, "missing"))
	assert.False(t, ToggleName(f, "w"), "leaves are not matched")

	// First x in pre-order is under a.
	require.True(t, ToggleName(f, "x"))
	ax := f[0].(*Group).Children[0].(*Group)
	bx := f[1].(*Group).Children[0].(*Group)
	assert.True(t, ax.Expanded)
	assert.False(t, bx.Expanded)

	// Collapsed groups are searched too.
	f[1].(*Group).Expanded = false
	require.True(t, ToggleName(f, "z"))
	assert.True(t, FindGroup(f, "z").Expanded)
}

func TestToggleNameMetadataGroup(t *testing.T) {
	f := Build(nil, []records.Metadata{{Key: "k", Value: "1", Type: "u8"}})
	assert.Len(t, Flatten(f), 1)
	require.True(t, ToggleName(f, MetadataGroupName))
	assert.Equal(t, []string{"0:" + MetadataGroupName, "1:k"}, rowNames(Flatten(f)))
}

func TestSetExpanded(t *testing.T) {
	f := Build(tensors("a.b.c.w", "a.b.d.w"), nil)
	assert.Len(t, Flatten(f), 2)

	SetExpanded(f, true)
	assert.Equal(t, []string{"0:a", "1:b", "2:c", "3:w", "2:d", "3:w"}, rowNames(Flatten(f)))
	assert.Equal(t, 6, Count(f))

	SetExpanded(f, false)
	assert.Len(t, Flatten(f), 1)
}

func TestSameNameLeafAndGroup(t *testing.T) {
	f := Build(tensors("a", "a.b"), nil)
	require.Len(t, f, 2)
	_, leaf := f[0].(*Tensor)
	_, group := f[1].(*Group)
	assert.True(t, leaf && group, "input order kept for equal names")
}

func TestExpandDepth(t *testing.T) {
	f := Build(tensors("a.b.c.w", "a.b.d.w", "e"), []records.Metadata{{Key: "k", Value: "1", Type: "u8"}})

	ExpandDepth(f, 1)
	assert.Equal(t, []string{"0:" + MetadataGroupName, "0:a", "0:e"}, rowNames(Flatten(f)))

	ExpandDepth(f, 3)
	assert.Equal(t, []string{"0:" + MetadataGroupName, "0:a", "1:b", "2:c", "2:d", "0:e"}, rowNames(Flatten(f)))

	ExpandDepth(f, 2)
	assert.Equal(t, []string{"0:" + MetadataGroupName, "0:a", "1:b", "0:e"}, rowNames(Flatten(f)))
}
