package main

import (
	"github.com/spf13/cobra"

	"github.com/23skdu/longbow-lens/internal/flight"
	"github.com/23skdu/longbow-lens/internal/metrics"
	"github.com/23skdu/longbow-lens/internal/render"
	"github.com/23skdu/longbow-lens/internal/tree"
)

func (a *app) remoteCmd() *cobra.Command {
	var o treeOptions
	c := &cobra.Command{
		Use:     "remote ADDR",
		Short:   "Fetch records from a lens serve instance and print the tree.",
		Example: `  lens remote localhost:3000 --expand-all`,
		Args:    cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			if o.noMetadata {
				a.cfg.ShowMetadata = false
			}
			client, err := flight.Dial(c.Context(), args[0], a.cfg.Serve.MaxMessageBytes)
			if err != nil {
				return err
			}
			defer client.Close()

			set, err := client.Fetch(c.Context())
			if err != nil {
				return err
			}
			f := a.forest(set)
			o.apply(f)
			metrics.RecordVisibleRows(len(tree.Flatten(f)))
			return render.Tree(c.OutOrStdout(), f, a.styles(c.OutOrStdout()))
		},
	}
	o.bind(c)
	return c
}
