// Package tree turns flat dot-delimited tensor names into an expandable
// forest with per-group aggregates.
package tree

import (
	"strings"

	"github.com/23skdu/longbow-lens/internal/natsort"
	"github.com/23skdu/longbow-lens/internal/records"
)

// MetadataGroupName labels the synthetic group holding metadata entries.
const MetadataGroupName = "🔧 Metadata"

// Node is a *Group, *Tensor or *Metadata.
type Node interface {
	Name() string
	isNode()
}

// Group aggregates every tensor leaf beneath it. Only Expanded changes
// after Build.
type Group struct {
	name        string
	Children    []Node
	Expanded    bool
	TensorCount int
	TotalSize   uint64
}

func (g *Group) Name() string { return g.name }
func (*Group) isNode() {}

// Tensor is a leaf named by the last segment of its record's name.
type Tensor struct {
	leaf   string
	Record records.Tensor
}

func (t *Tensor) Name() string { return t.leaf }
func (*Tensor) isNode() {}

type Metadata struct {
	Record records.Metadata
}

func (m *Metadata) Name() string { return m.Record.Key }
func (*Metadata) isNode() {}

// Forest is the ordered list of top-level nodes.
type Forest []Node

type pending struct {
	rest string
	rec  records.Tensor
}

// Build groups tensors by dot segments. Top-level groups start expanded,
// nested groups collapsed. Non-empty metadata becomes a collapsed
// MetadataGroupName group placed first that adds nothing to aggregates.
func Build(tensors []records.Tensor, metadata []records.Metadata) Forest {
	items := make([]pending, len(tensors))
	for i, t := range tensors {
		items[i] = pending{rest: t.Name, rec: t}
	}

	level := build(items, true)
	if len(metadata) == 0 {
		return Forest(level)
	}

	meta := &Group{name: MetadataGroupName, Children: make([]Node, len(metadata))}
	for i := range metadata {
		meta.Children[i] = &Metadata{Record: metadata[i]}
	}
	natsort.SortBy(meta.Children, Node.Name)

	forest := make(Forest, 0, len(level)+1)
	forest = append(forest, meta)
	return append(forest, level...)
}

func build(items []pending, top bool) []Node {
	var (
		nodes   []Node
		groups  = make(map[string]int)
		buckets [][]pending
	)
	for _, it := range items {
		head, rest, nested := strings.Cut(it.rest, ".")
		if !nested {
			nodes = append(nodes, &Tensor{leaf: it.rest, Record: it.rec})
			continue
		}
		i, ok := groups[head]
		if !ok {
			i = len(buckets)
			groups[head] = i
			buckets = append(buckets, nil)
			nodes = append(nodes, &Group{name: head, Expanded: top})
		}
		buckets[i] = append(buckets[i], pending{rest: rest, rec: it.rec})
	}

	for _, n := range nodes {
		g, ok := n.(*Group)
		if !ok {
			continue
		}
		g.Children = build(buckets[groups[g.name]], false)
		for _, c := range g.Children {
			switch c := c.(type) {
			case *Group:
				g.TensorCount += c.TensorCount
				g.TotalSize += c.TotalSize
			case *Tensor:
				g.TensorCount++
				g.TotalSize += c.Record.Size
			}
		}
	}

	natsort.SortBy(nodes, Node.Name)
	return nodes
}
