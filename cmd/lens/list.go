package main

import (
	"github.com/spf13/cobra"

	"github.com/23skdu/longbow-lens/internal/gguf"
	"github.com/23skdu/longbow-lens/internal/loader"
	"github.com/23skdu/longbow-lens/internal/render"
)

func (a *app) listCmd() *cobra.Command {
	var (
		inJSON bool
		border bool
	)
	c := &cobra.Command{
		Use:   "list PATH...",
		Short: "List tensors as a table.",
		Example: `  # Tensors of an ollama model as JSON
  lens list llama3.2:1b --json`,
		Args: requirePaths,
		RunE: func(c *cobra.Command, args []string) error {
			res, err := a.load(c.Context(), args)
			if err != nil {
				return err
			}
			if inJSON {
				return render.JSON(c.OutOrStdout(), res.Set)
			}
			render.TensorTable(c.OutOrStdout(), res.Set.Tensors, border)
			return nil
		},
	}
	c.Flags().BoolVar(&inJSON, "json", false, "output tensors and metadata as JSON")
	c.Flags().BoolVar(&border, "border", true, "draw table borders")
	return c
}

func (a *app) metaCmd() *cobra.Command {
	var border bool
	c := &cobra.Command{
		Use:   "meta PATH...",
		Short: "List file metadata entries.",
		Args:  requirePaths,
		RunE: func(c *cobra.Command, args []string) error {
			res, err := a.load(c.Context(), args)
			if err != nil {
				return err
			}
			render.MetadataTable(c.OutOrStdout(), res.Set.Metadata, border)
			return nil
		},
	}
	c.Flags().BoolVar(&border, "border", true, "draw table borders")
	return c
}

func (a *app) infoCmd() *cobra.Command {
	var border bool
	c := &cobra.Command{
		Use:   "info PATH...",
		Short: "Summarize each GGUF file.",
		Args:  requirePaths,
		RunE: func(c *cobra.Command, args []string) error {
			res, err := a.load(c.Context(), args)
			if err != nil {
				return err
			}
			w := c.OutOrStdout()
			for _, f := range res.Files {
				if f.Format != loader.FormatGGUF {
					render.TensorTable(w, f.Records.Tensors, border)
					continue
				}
				render.InfoTable(w, f.Path, gguf.Summarize(f.GGUF), border)
			}
			return nil
		},
	}
	c.Flags().BoolVar(&border, "border", true, "draw table borders")
	return c
}
