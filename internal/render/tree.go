package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/23skdu/longbow-lens/internal/tree"
)

const (
	markerExpanded  = "▼"
	markerCollapsed = "▶"
)

// Line renders one flattened row.
func Line(row tree.Row, st Styles) string {
	indent := strings.Repeat("  ", row.Depth)
	switch n := row.Node.(type) {
	case *tree.Group:
		marker := markerCollapsed
		if n.Expanded {
			marker = markerExpanded
		}
		var agg string
		if n.Name() == tree.MetadataGroupName {
			agg = fmt.Sprintf("(%d entries)", len(n.Children))
		} else {
			agg = fmt.Sprintf("(%d tensors, %s)", n.TensorCount, Size(n.TotalSize))
		}
		return indent + marker + " " + st.Group.Render(n.Name()) + "  " + st.Dim.Render(agg)
	case *tree.Tensor:
		r := n.Record
		return indent + "  " + st.Tensor.Render(n.Name()) + "  " +
			st.DType.Render(r.DType) + "  " +
			st.Shape.Render(Shape(r.Shape)) + "  " +
			st.Size.Render(Size(r.Size))
	case *tree.Metadata:
		r := n.Record
		return indent + "  " + st.Metadata.Render(r.Key) + " = " +
			st.Value.Render(r.Value) + " " + st.Dim.Render("("+r.Type+")")
	}
	return indent + row.Node.Name()
}

// Tree writes every row followed by a totals line.
func Tree(w io.Writer, f tree.Forest, st Styles) error {
	for _, row := range tree.Flatten(f) {
		if _, err := fmt.Fprintln(w, Line(row, st)); err != nil {
			return err
		}
	}
	tensors, size := tree.Totals(f)
	_, err := fmt.Fprintln(w, st.Dim.Render(fmt.Sprintf("%d tensors, %s", tensors, Size(size))))
	return err
}
