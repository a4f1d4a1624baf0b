package render

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/23skdu/longbow-lens/internal/tree"
)

const (
	defaultHeight = 24
	defaultWidth  = 80

	// maxValueLines bounds the wrapped metadata value in the detail view.
	maxValueLines = 20
)

// Browser is the interactive tree view. The forest is mutated in place
// by toggles; rows are recomputed after each one.
type Browser struct {
	forest tree.Forest
	rows   []tree.Row
	cursor int
	offset int
	height int
	width  int
	params uint64
	title  string
	styles Styles

	// detail is the leaf shown full screen, nil in the tree view.
	detail tree.Node

	// OnFlatten, if set, receives the row count after every flatten.
	OnFlatten func(rows int)
}

func NewBrowser(title string, f tree.Forest, st Styles) Browser {
	b := Browser{
		forest: f,
		height: defaultHeight,
		width:  defaultWidth,
		params: params(f),
		title:  title,
		styles: st,
	}
	b.rows = tree.Flatten(f)
	return b
}

func params(nodes []tree.Node) uint64 {
	var n uint64
	for _, node := range nodes {
		switch node := node.(type) {
		case *tree.Group:
			n += params(node.Children)
		case *tree.Tensor:
			n += node.Record.Elements
		}
	}
	return n
}

func (b Browser) Init() tea.Cmd {
	if b.OnFlatten != nil {
		b.OnFlatten(len(b.rows))
	}
	return nil
}

// Cursor returns the selected row index.
func (b Browser) Cursor() int { return b.cursor }

func (b Browser) Rows() []tree.Row { return b.rows }

// Detail returns the leaf opened with enter, or nil.
func (b Browser) Detail() tree.Node { return b.detail }

func (b Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.height = max(msg.Height-3, 1)
		b.width = max(msg.Width, 20)
		b.scroll()

	case tea.KeyMsg:
		if b.detail != nil {
			if msg.String() == "ctrl+c" {
				return b, tea.Quit
			}
			b.detail = nil
			return b, nil
		}
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return b, tea.Quit
		case "up", "k":
			if b.cursor > 0 {
				b.cursor--
			}
		case "down", "j":
			if b.cursor < len(b.rows)-1 {
				b.cursor++
			}
		case "pgup":
			b.cursor = max(b.cursor-b.height, 0)
		case "pgdown":
			b.cursor = max(min(b.cursor+b.height, len(b.rows)-1), 0)
		case "home", "g":
			b.cursor = 0
		case "end", "G":
			b.cursor = max(len(b.rows)-1, 0)
		case "enter", " ":
			if tree.ToggleIndex(b.forest, b.cursor) {
				b.rows = tree.Flatten(b.forest)
				if b.OnFlatten != nil {
					b.OnFlatten(len(b.rows))
				}
			} else if b.cursor < len(b.rows) {
				b.detail = b.rows[b.cursor].Node
			}
		}
		b.scroll()
	}
	return b, nil
}

// scroll keeps the cursor inside the visible window.
func (b *Browser) scroll() {
	if b.cursor < b.offset {
		b.offset = b.cursor
	}
	if b.cursor >= b.offset+b.height {
		b.offset = b.cursor - b.height + 1
	}
}

func (b Browser) View() string {
	var sb strings.Builder
	tensors, size := tree.Totals(b.forest)
	sb.WriteString(b.styles.Group.Render(b.title))
	sb.WriteString("  ")
	sb.WriteString(b.styles.Dim.Render(fmt.Sprintf("%d tensors, %s", tensors, Size(size))))
	sb.WriteByte('\n')

	if b.detail != nil {
		b.viewDetail(&sb)
		sb.WriteString(b.styles.Help.Render("any key returns to the tree"))
		return sb.String()
	}

	end := min(b.offset+b.height, len(b.rows))
	for i := b.offset; i < end; i++ {
		line := Line(b.rows[i], b.styles)
		if i == b.cursor {
			line = b.styles.Cursor.Render(line)
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	pos := 0
	if len(b.rows) > 0 {
		pos = b.cursor + 1
	}
	sb.WriteString(b.styles.Help.Render(fmt.Sprintf(
		"Selected %d/%d • %s params • ↑/↓ move • enter/space open • q quit",
		pos, len(b.rows), Params(b.params))))
	return sb.String()
}

func (b Browser) viewDetail(sb *strings.Builder) {
	field := func(name, value string) {
		sb.WriteString(b.styles.Dim.Render(fmt.Sprintf("%-10s", name)) + " " + value + "\n")
	}
	switch n := b.detail.(type) {
	case *tree.Tensor:
		r := n.Record
		field("name", b.styles.Tensor.Render(r.Name))
		field("dtype", b.styles.DType.Render(r.DType))
		field("shape", b.styles.Shape.Render(Shape(r.Shape)))
		field("elements", Count(r.Elements))
		field("size", b.styles.Size.Render(fmt.Sprintf("%s (%s bytes)", Size(r.Size), Count(r.Size))))
	case *tree.Metadata:
		r := n.Record
		field("key", b.styles.Metadata.Render(r.Key))
		field("type", r.Type)
		field("value", "")
		wrapped := lipgloss.NewStyle().Width(max(b.width-2, 10)).Render(r.Value)
		lines := strings.Split(wrapped, "\n")
		more := len(lines) - maxValueLines
		if more > 0 {
			lines = lines[:maxValueLines]
		}
		for _, l := range lines {
			sb.WriteString("  " + b.styles.Value.Render(strings.TrimRight(l, " ")) + "\n")
		}
		if more > 0 {
			sb.WriteString(b.styles.Dim.Render(fmt.Sprintf("  ... %d more lines", more)) + "\n")
		}
	}
}
