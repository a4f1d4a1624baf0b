// Package loader finds model files on disk and reads them into one
// merged record set.
package loader

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/23skdu/longbow-lens/internal/config"
	"github.com/23skdu/longbow-lens/internal/gguf"
	"github.com/23skdu/longbow-lens/internal/logger"
	"github.com/23skdu/longbow-lens/internal/metrics"
	"github.com/23skdu/longbow-lens/internal/records"
	"github.com/23skdu/longbow-lens/internal/safetensors"
)

// ErrNoFiles is returned when discovery finds nothing to load.
var ErrNoFiles = errors.New("no GGUF or safetensors files found")

type Options struct {
	Recursive      bool
	Workers        int
	MaxHeaderBytes int64
	OllamaDir      string
}

// OptionsFromConfig copies the loader settings out of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Recursive:      cfg.Recursive,
		Workers:        cfg.Workers,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
		OllamaDir:      cfg.OllamaDir,
	}
}

// File is one successfully decoded input. Exactly one of GGUF and
// Safetensors is set.
type File struct {
	Path        string
	Format      Format
	GGUF        *gguf.File
	Safetensors *safetensors.File
	Records     records.Set
}

type Failure struct {
	Path string
	Err  error
}

type Result struct {
	// Files and Failures are in discovery order.
	Files    []File
	Failures []Failure
	// Set merges every file's records, first-seen wins.
	Set records.Set
}

// Load discovers and decodes args. A file that fails to read or decode
// is logged and recorded in Failures; Load only fails when nothing could
// be loaded.
func Load(ctx context.Context, args []string, opts Options) (*Result, error) {
	paths, err := Discover(args, opts)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, ErrNoFiles
	}
	return LoadFiles(ctx, paths, opts)
}

// LoadFiles decodes paths concurrently, at most opts.Workers at a time,
// and merges them in the given order.
func LoadFiles(ctx context.Context, paths []string, opts Options) (*Result, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	files := make([]*File, len(paths))
	errs := make([]error, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			files[i], errs[i] = LoadFile(p, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{}
	sets := make([]records.Set, 0, len(paths))
	for i, p := range paths {
		if errs[i] != nil {
			logger.Log.Warn("skipping file", "path", p, "error", errs[i])
			res.Failures = append(res.Failures, Failure{Path: p, Err: errs[i]})
			continue
		}
		res.Files = append(res.Files, *files[i])
		sets = append(sets, files[i].Records)
	}
	if len(res.Files) == 0 {
		return res, errors.Wrapf(res.Failures[0].Err, "all %d files failed to load, first", len(paths))
	}

	res.Set = records.Merge(sets...)
	logger.Log.Info("loaded model files",
		"files", len(res.Files),
		"failed", len(res.Failures),
		"tensors", len(res.Set.Tensors),
		"metadata", len(res.Set.Metadata),
	)
	return res, nil
}

// LoadFile reads and decodes a single file.
func LoadFile(path string, opts Options) (*File, error) {
	format, err := DetectFormat(path)
	if err != nil {
		metrics.RecordFileLoaded(format.String(), err)
		return nil, err
	}

	f := &File{Path: path, Format: format}
	switch format {
	case FormatGGUF:
		f.GGUF, err = gguf.ReadFile(path)
		if err == nil {
			if v := f.GGUF.Header.Version; v != 2 && v != 3 {
				logger.Log.Warn("unexpected GGUF version", "path", path, "version", v)
			}
			f.Records = records.FromGGUF(f.GGUF)
		}
	case FormatSafetensors:
		f.Safetensors, err = safetensors.ReadFile(path, opts.MaxHeaderBytes)
		if err == nil {
			f.Records = records.FromSafetensors(f.Safetensors)
		}
	default:
		err = errors.Errorf("unsupported file format: %s", path)
	}
	metrics.RecordFileLoaded(format.String(), err)
	if err != nil {
		return nil, err
	}
	return f, nil
}
