package render

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Styles colors the parts of a tree line. The zero value renders plain
// text.
type Styles struct {
	Group    lipgloss.Style
	Tensor   lipgloss.Style
	Metadata lipgloss.Style
	DType    lipgloss.Style
	Shape    lipgloss.Style
	Size     lipgloss.Style
	Value    lipgloss.Style
	Dim      lipgloss.Style
	Cursor   lipgloss.Style
	Help     lipgloss.Style
}

// NewStyles returns the colored palette, or plain styles when color is
// false.
func NewStyles(color bool) Styles {
	plain := lipgloss.NewStyle()
	if !color {
		return Styles{
			Group: plain, Tensor: plain, Metadata: plain, DType: plain, Shape: plain,
			Size: plain, Value: plain, Dim: plain, Cursor: plain, Help: plain,
		}
	}
	return Styles{
		Group: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7B68EE")),
		Tensor: lipgloss.NewStyle(),
		Metadata: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00D4FF")),
		DType: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")),
		Shape: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7FFF00")),
		Size: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")),
		Value: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7FFF00")),
		Dim: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")),
		Cursor: lipgloss.NewStyle().
			Reverse(true),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Italic(true),
	}
}

// ColorEnabled resolves a color mode of auto, always or never against f.
func ColorEnabled(mode string, f *os.File) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
