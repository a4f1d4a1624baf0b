package main

import (
	"github.com/spf13/cobra"

	"github.com/23skdu/longbow-lens/internal/logger"
	"github.com/23skdu/longbow-lens/internal/metrics"
	"github.com/23skdu/longbow-lens/internal/render"
	"github.com/23skdu/longbow-lens/internal/tree"
)

type treeOptions struct {
	expand     []string
	expandAll  bool
	depth      int
	noMetadata bool
}

func (o *treeOptions) bind(c *cobra.Command) {
	c.Flags().StringArrayVar(&o.expand, "expand", nil, "toggle the first group with this name (repeatable)")
	c.Flags().BoolVar(&o.expandAll, "expand-all", false, "expand every group")
	c.Flags().IntVar(&o.depth, "depth", 0, "expand groups down to this depth (0 keeps the default)")
	c.Flags().BoolVar(&o.noMetadata, "no-metadata", false, "hide the metadata group")
}

// apply sets the initial expansion of f.
func (o *treeOptions) apply(f tree.Forest) {
	switch {
	case o.expandAll:
		tree.SetExpanded(f, true)
	case o.depth > 0:
		tree.ExpandDepth(f, o.depth)
	}
	for _, name := range o.expand {
		if !tree.ToggleName(f, name) {
			logger.Log.Warn("no group to expand", "name", name)
		}
	}
}

func (a *app) treeCmd() *cobra.Command {
	var o treeOptions
	c := &cobra.Command{
		Use:   "tree PATH...",
		Short: "Print the tensor namespace tree.",
		Example: `  # Print a model's tree with layer 0 expanded
  lens tree model.gguf --expand 0

  # All shards of a safetensors checkpoint
  lens tree ./Llama-3-8B/`,
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
			metrics.RecordVisibleRows(len(tree.Flatten(f)))
			return render.Tree(c.OutOrStdout(), f, a.styles(c.OutOrStdout()))
		},
	}
	o.bind(c)
	return c
}
