package loader

import (
	"encoding/binary"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/moby/patternmatcher"
	"github.com/pkg/errors"

	"github.com/23skdu/longbow-lens/internal/gguf"
	"github.com/23skdu/longbow-lens/internal/logger"
	"github.com/23skdu/longbow-lens/internal/safetensors"
)

type Format int

const (
	FormatUnknown Format = iota
	FormatGGUF
	FormatSafetensors
)

func (f Format) String() string {
	switch f {
	case FormatGGUF:
		return "gguf"
	case FormatSafetensors:
		return "safetensors"
	default:
		return "unknown"
	}
}

// DetectFormat decides by extension, then by sniffing the first bytes so
// that extensionless ollama blobs are recognized.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gguf":
		return FormatGGUF, nil
	case ".safetensors":
		return FormatSafetensors, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, errors.Wrapf(err, "sniffing %s", path)
	}
	defer func() { _ = f.Close() }()

	var head [4]byte
	if _, err := io.ReadFull(f, head[:]); err != nil {
		return FormatUnknown, nil
	}
	if binary.LittleEndian.Uint32(head[:]) == gguf.GGUFMagic {
		return FormatGGUF, nil
	}
	return FormatUnknown, nil
}

var (
	flatPatterns      = []string{"*.gguf", "*.safetensors"}
	recursivePatterns = []string{"**/*.gguf", "**/*.safetensors"}
)

// Discover expands command-line arguments into a sorted, de-duplicated
// list of model files. Arguments may be files, directories, glob
// patterns or ollama model references. Unusable arguments are logged and
// skipped.
func Discover(args []string, opts Options) ([]string, error) {
	log := logger.Log.With("component", "discover")
	seen := make(map[string]struct{})
	var files []string
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		files = append(files, p)
	}

	for _, arg := range args {
		paths := []string{arg}
		if _, err := os.Stat(arg); err != nil {
			switch {
			case hasGlobMeta(arg):
				matches, gerr := filepath.Glob(arg)
				if gerr != nil {
					log.Warn("invalid glob pattern", "pattern", arg, "error", gerr)
					continue
				}
				if len(matches) == 0 {
					log.Warn("pattern matched nothing", "pattern", arg)
					continue
				}
				paths = matches
			case looksLikeModelRef(arg):
				blob, rerr := resolveRef(arg, opts.OllamaDir)
				if rerr != nil {
					log.Warn("path does not exist", "path", arg, "ollama", rerr)
					continue
				}
				log.Debug("resolved ollama model", "ref", arg, "blob", blob)
				paths = []string{blob}
			default:
				log.Warn("path does not exist", "path", arg)
				continue
			}
		}

		for _, p := range paths {
			found, err := expand(p, opts.Recursive)
			if err != nil {
				return nil, err
			}
			for _, f := range found {
				add(f)
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

func expand(path string, recursive bool) ([]string, error) {
	log := logger.Log.With("component", "discover")
	info, err := os.Stat(path)
	if err != nil {
		log.Warn("path does not exist", "path", path)
		return nil, nil
	}

	if !info.IsDir() {
		format, err := DetectFormat(path)
		if err != nil {
			log.Warn("skipping unreadable file", "path", path, "error", err)
			return nil, nil
		}
		if format == FormatUnknown {
			log.Warn("skipping unsupported file", "path", path)
			return nil, nil
		}
		return []string{path}, nil
	}

	indexPath := filepath.Join(path, safetensors.IndexFileName)
	if _, err := os.Stat(indexPath); err == nil {
		return expandIndex(path, indexPath)
	}
	return scanDir(path, recursive)
}

func expandIndex(dir, indexPath string) ([]string, error) {
	ix, err := safetensors.ReadIndex(indexPath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading shard index in %s", dir)
	}
	var out []string
	for _, shard := range ix.Shards() {
		p := filepath.Join(dir, shard)
		if _, err := os.Stat(p); err != nil {
			logger.Log.Warn("shard listed in index is missing", "index", indexPath, "shard", shard)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func scanDir(root string, recursive bool) ([]string, error) {
	patterns := flatPatterns
	if recursive {
		patterns = recursivePatterns
	}
	pm, err := patternmatcher.New(patterns)
	if err != nil {
		return nil, errors.Wrap(err, "compiling discovery patterns")
	}

	var out []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Log.Warn("error reading directory entry", "path", p, "error", err)
			return nil
		}
		if d.IsDir() {
			if p != root && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		ok, err := pm.MatchesOrParentMatches(rel)
		if err != nil {
			return err
		}
		if ok {
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scanning %s", root)
	}
	return out, nil
}

func hasGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

// looksLikeModelRef rejects arguments that are clearly file paths.
func looksLikeModelRef(s string) bool {
	if s == "" || filepath.IsAbs(s) || strings.HasPrefix(s, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(s))
	if ext == ".gguf" || ext == ".safetensors" || ext == ".json" {
		return false
	}
	return strings.Count(s, "/") <= 2
}

func resolveRef(ref, override string) (string, error) {
	dir, err := OllamaDir(override)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(dir); err != nil {
		return "", errors.Wrap(err, "ollama models directory")
	}
	return ResolveModelPath(dir, ref)
}
