package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/23skdu/longbow-lens/internal/export"
	"github.com/23skdu/longbow-lens/internal/logger"
)

func (a *app) exportCmd() *cobra.Command {
	var output string
	c := &cobra.Command{
		Use:   "export PATH... -o FILE",
		Short: "Write the tensor records as an Arrow IPC file.",
		Args:  requirePaths,
		RunE: func(c *cobra.Command, args []string) error {
			if output == "" {
				return errors.New("--output is required")
			}
			res, err := a.load(c.Context(), args)
			if err != nil {
				return err
			}

			f, err := os.Create(output)
			if err != nil {
				return errors.Wrapf(err, "create %s", output)
			}
			if err := export.WriteFile(f, res.Set); err != nil {
				_ = f.Close()
				return errors.Wrapf(err, "export %s", output)
			}
			if err := f.Close(); err != nil {
				return errors.Wrapf(err, "close %s", output)
			}

			logger.Log.Info("exported", "path", output, "tensors", len(res.Set.Tensors), "metadata", len(res.Set.Metadata))
			_, err = fmt.Fprintf(c.OutOrStdout(), "wrote %d tensors to %s\n", len(res.Set.Tensors), output)
			return err
		},
	}
	c.Flags().StringVarP(&output, "output", "o", "", "destination Arrow IPC file")
	return c
}
