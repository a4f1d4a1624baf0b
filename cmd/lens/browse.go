package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/23skdu/longbow-lens/internal/metrics"
	"github.com/23skdu/longbow-lens/internal/render"
)

func (a *app) browseCmd() *cobra.Command {
	var o treeOptions
	c := &cobra.Command{
		Use:   "browse PATH...",
		Short: "Browse the tensor tree interactively.",
		Long: `Browse opens a full-screen tree view. Use the arrow keys to move,
enter or space to expand or collapse a group or to open a tensor or
metadata entry in full, and q to quit.`,
		Args: requirePaths,
		RunE: func(c *cobra.Command, args []string) error {
			if o.noMetadata {
				a.cfg.ShowMetadata = false
			}
			res, err := a.load(c.Context(), args)
			if err != nil {
				return err
			}
			f := a.forest(res.Set)
			o.apply(f)

			b := render.NewBrowser(title(res), f, render.NewStyles(a.cfg.Color != "never"))
			b.OnFlatten = metrics.RecordVisibleRows

			p := tea.NewProgram(b,
				tea.WithAltScreen(),
				tea.WithContext(c.Context()),
				tea.WithInput(c.InOrStdin()),
				tea.WithOutput(c.OutOrStdout()),
			)
			_, err = p.Run()
			return err
		},
	}
	o.bind(c)
	return c
}
