package safetensors

import (
	"fmt"
	"os"
	"sort"

	"github.com/goccy/go-json"
)

// IndexFileName is the conventional name of a sharded checkpoint index.
const IndexFileName = "model.safetensors.index.json"

// Index is a sharded checkpoint index mapping tensor names to shard
// files.
type Index struct {
	Metadata  map[string]any    `json:"metadata"`
	WeightMap map[string]string `json:"weight_map"`
}

func ReadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var ix Index
	if err := json.Unmarshal(data, &ix); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, &Error{Kind: ErrInvalidHeader, Detail: err.Error()})
	}
	if len(ix.WeightMap) == 0 {
		return nil, fmt.Errorf("parsing %s: %w", path, &Error{Kind: ErrInvalidHeader, Detail: "empty weight_map"})
	}
	return &ix, nil
}

// Shards returns the unique shard file names, sorted.
func (ix *Index) Shards() []string {
	seen := make(map[string]struct{}, 8)
	out := make([]string, 0, 8)
	for _, shard := range ix.WeightMap {
		if _, ok := seen[shard]; ok {
			continue
		}
		seen[shard] = struct{}{}
		out = append(out, shard)
	}
	sort.Strings(out)
	return out
}
