package tree

// Row is one visible line of a flattened forest.
type Row struct {
	Node  Node
	Depth int
}

// Flatten lists the visible nodes in pre-order. Children of collapsed
// groups are skipped.
func Flatten(f Forest) []Row {
	rows := make([]Row, 0, len(f))
	var walk func(nodes []Node, depth int)
	walk = func(nodes []Node, depth int) {
		for _, n := range nodes {
			rows = append(rows, Row{Node: n, Depth: depth})
			if g, ok := n.(*Group); ok && g.Expanded {
				walk(g.Children, depth+1)
			}
		}
	}
	walk(f, 0)
	return rows
}

// ToggleIndex flips the group shown at row index of Flatten(f). It
// reports false when the row is a leaf or out of range.
func ToggleIndex(f Forest, index int) bool {
	if index < 0 {
		return false
	}
	row := 0
	toggled, _ := toggleIndex(f, index, &row)
	return toggled
}

// toggleIndex returns found once the row at index has been reached,
// whether or not it was a group.
func toggleIndex(nodes []Node, index int, row *int) (toggled, found bool) {
	for _, n := range nodes {
		g, isGroup := n.(*Group)
		if *row == index {
			if isGroup {
				g.Expanded = !g.Expanded
			}
			return isGroup, true
		}
		*row++
		if isGroup && g.Expanded {
			if toggled, found := toggleIndex(g.Children, index, row); found {
				return toggled, true
			}
		}
	}
	return false, false
}

// ToggleName flips the first group in pre-order named name, searching
// collapsed groups too. Groups sharing a name are not told apart.
func ToggleName(f Forest, name string) bool {
	if g := FindGroup(f, name); g != nil {
		g.Expanded = !g.Expanded
		return true
	}
	return false
}

// FindGroup returns the first group in pre-order named name, or nil.
func FindGroup(f Forest, name string) *Group {
	var find func(nodes []Node) *Group
	find = func(nodes []Node) *Group {
		for _, n := range nodes {
			g, ok := n.(*Group)
			if !ok {
				continue
			}
			if g.name == name {
				return g
			}
			if found := find(g.Children); found != nil {
				return found
			}
		}
		return nil
	}
	return find(f)
}

// SetExpanded sets the flag of every group, including collapsed ones.
func SetExpanded(f Forest, expanded bool) {
	var walk func(nodes []Node)
	walk = func(nodes []Node) {
		for _, n := range nodes {
			if g, ok := n.(*Group); ok {
				g.Expanded = expanded
				walk(g.Children)
			}
		}
	}
	walk(f)
}

// Count returns the number of nodes in the forest, visible or not.
func Count(f Forest) int {
	var count func(nodes []Node) int
	count = func(nodes []Node) int {
		n := len(nodes)
		for _, node := range nodes {
			if g, ok := node.(*Group); ok {
				n += count(g.Children)
			}
		}
		return n
	}
	return count(f)
}

// Totals sums the aggregates of the top-level nodes.
func Totals(f Forest) (tensors int, size uint64) {
	for _, n := range f {
		switch n := n.(type) {
		case *Group:
			tensors += n.TensorCount
			size += n.TotalSize
		case *Tensor:
			tensors++
			size += n.Record.Size
		}
	}
	return tensors, size
}

// ExpandDepth expands groups above depth and collapses the rest, so
// Flatten shows nodes down to depth. The metadata group stays collapsed.
func ExpandDepth(f Forest, depth int) {
	var walk func(nodes []Node, d int)
	walk = func(nodes []Node, d int) {
		for _, n := range nodes {
			if g, ok := n.(*Group); ok {
				g.Expanded = d < depth && g.name != MetadataGroupName
				walk(g.Children, d+1)
			}
		}
	}
	walk(f, 1)
}
