package loader

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

const (
	DefaultTag      = "latest"
	DefaultRegistry = "registry.ollama.ai"
	DefaultOllamaNS = "library"
	MediaTypeModel  = "application/vnd.ollama.image.model"
)

type Manifest struct {
	SchemaVersion int     `json:"schemaVersion"`
	Layers        []Layer `json:"layers"`
}

type Layer struct {
	MediaType string `json:"mediaType"`
	Digest    string `json:"digest"`
	Size      int64  `json:"size"`
}

// OllamaDir returns override if set, else $OLLAMA_MODELS, else
// ~/.ollama/models.
func OllamaDir(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if env := os.Getenv("OLLAMA_MODELS"); env != "" {
		return env, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "locating ollama models")
	}
	return filepath.Join(home, ".ollama", "models"), nil
}

// ModelRef is a parsed ollama model reference.
type ModelRef struct {
	Registry  string
	Namespace string
	Name      string
	Tag       string
}

// ParseModelRef accepts "name", "name:tag", "namespace/name[:tag]" and
// "registry/namespace/name[:tag]".
func ParseModelRef(ref string) (ModelRef, error) {
	m := ModelRef{Registry: DefaultRegistry, Namespace: DefaultOllamaNS, Tag: DefaultTag}

	rest := ref
	if i := strings.LastIndex(rest, ":"); i > strings.LastIndex(rest, "/") {
		m.Tag = rest[i+1:]
		rest = rest[:i]
	}
	parts := strings.Split(rest, "/")
	switch len(parts) {
	case 1:
		m.Name = parts[0]
	case 2:
		m.Namespace, m.Name = parts[0], parts[1]
	case 3:
		m.Registry, m.Namespace, m.Name = parts[0], parts[1], parts[2]
	default:
		return ModelRef{}, errors.Errorf("invalid model reference %q", ref)
	}
	for _, p := range []string{m.Registry, m.Namespace, m.Name, m.Tag} {
		if p == "" || p == "." || p == ".." {
			return ModelRef{}, errors.Errorf("invalid model reference %q", ref)
		}
	}
	return m, nil
}

func (m ModelRef) String() string {
	return m.Registry + "/" + m.Namespace + "/" + m.Name + ":" + m.Tag
}

// ResolveModelPath finds the GGUF blob behind an ollama model reference
// such as "llama3" or "llama3:8b" under the models directory dir.
func ResolveModelPath(dir, ref string) (string, error) {
	m, err := ParseModelRef(ref)
	if err != nil {
		return "", err
	}

	manifestPath := filepath.Join(dir, "manifests", m.Registry, m.Namespace, m.Name, m.Tag)
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return "", errors.Wrapf(err, "reading manifest for %s", m)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return "", errors.Wrapf(err, "parsing manifest %s", manifestPath)
	}

	var digest string
	for _, l := range manifest.Layers {
		if l.MediaType == MediaTypeModel {
			digest = l.Digest
			break
		}
	}
	if digest == "" {
		return "", errors.Errorf("no model layer in manifest %s", manifestPath)
	}

	// Digest "sha256:<hash>" is stored as blobs/sha256-<hash>.
	blobPath := filepath.Join(dir, "blobs", strings.Replace(digest, ":", "-", 1))
	if _, err := os.Stat(blobPath); err != nil {
		return "", errors.Wrapf(err, "model blob for %s", m)
	}
	return blobPath, nil
}
