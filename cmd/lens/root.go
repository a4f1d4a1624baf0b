package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/23skdu/longbow-lens/internal/config"
	"github.com/23skdu/longbow-lens/internal/loader"
	"github.com/23skdu/longbow-lens/internal/logger"
	"github.com/23skdu/longbow-lens/internal/metrics"
	"github.com/23skdu/longbow-lens/internal/monitoring"
	"github.com/23skdu/longbow-lens/internal/records"
	"github.com/23skdu/longbow-lens/internal/render"
	"github.com/23skdu/longbow-lens/internal/tree"
)

// app carries state shared by every subcommand of one invocation.
type app struct {
	cfgFile string
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	defaults := config.Default()

	c := &cobra.Command{
		Use:   "lens",
		Short: "Inspect GGUF and safetensors model files.",
		Long: `lens reads the header section of GGUF and safetensors files and shows
tensor names, shapes, dtypes, sizes and file metadata as a navigable tree.
Tensor payloads are never decoded.`,
		Version:       monitoring.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.cfgFile, c.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg
			logger.Setup(cfg.LogLevel, cfg.LogFormat)
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.cfg == nil || a.cfg.MetricsFile == "" {
				return nil
			}
			return metrics.WriteTextfile(a.cfg.MetricsFile)
		},
	}

	pf := c.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default searches $HOME/.lens and . for lens.yaml)")
	pf.String("log-level", defaults.LogLevel, "log level: debug, info, warn or error")
	pf.String("log-format", defaults.LogFormat, "log format: console or json")
	pf.BoolP("recursive", "r", defaults.Recursive, "descend into subdirectories")
	pf.Int("workers", defaults.Workers, "files read concurrently")
	pf.String("metrics-file", "", "write Prometheus metrics to this file on exit")
	pf.String("ollama-dir", "", "ollama models directory (default $OLLAMA_MODELS or ~/.ollama/models)")
	pf.String("color", defaults.Color, "color output: auto, always or never")

	c.AddCommand(
		a.treeCmd(),
		a.browseCmd(),
		a.listCmd(),
		a.metaCmd(),
		a.infoCmd(),
		a.exportCmd(),
		a.serveCmd(),
		a.remoteCmd(),
	)
	return c
}

// load discovers and reads args. Per-file failures are logged by the
// loader; the command fails only when nothing loads.
func (a *app) load(ctx context.Context, args []string) (*loader.Result, error) {
	res, err := loader.Load(ctx, args, loader.OptionsFromConfig(a.cfg))
	if err != nil {
		return nil, err
	}
	logger.Log.Debug("loaded", "files", len(res.Files), "failures", len(res.Failures),
		"tensors", len(res.Set.Tensors), "metadata", len(res.Set.Metadata))
	return res, nil
}

// forest builds the tree for set, honoring show_metadata.
func (a *app) forest(set records.Set) tree.Forest {
	md := set.Metadata
	if !a.cfg.ShowMetadata {
		md = nil
	}
	start := time.Now()
	f := tree.Build(set.Tensors, md)
	metrics.RecordTreeBuild(time.Since(start), tree.Count(f))
	return f
}

func (a *app) styles(w io.Writer) render.Styles {
	f, ok := w.(*os.File)
	if !ok {
		return render.NewStyles(a.cfg.Color == "always")
	}
	return render.NewStyles(render.ColorEnabled(a.cfg.Color, f))
}

// title names a loaded set after its files.
func title(res *loader.Result) string {
	switch len(res.Files) {
	case 0:
		return "(empty)"
	case 1:
		return filepath.Base(res.Files[0].Path)
	}
	return fmt.Sprintf("%s (+%d files)", filepath.Base(res.Files[0].Path), len(res.Files)-1)
}

func requirePaths(_ *cobra.Command, args []string) error {
	if len(args) == 0 {
		return errors.New("at least one path, glob or model reference is required")
	}
	return nil
}
