// Package export writes a built graph to its consumers: the JSON file read by
// the web renderer and a PostgreSQL schema for ad-hoc queries.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prereqgraph/prereqgraph/pkg/graph"
)

// DefaultGraphPath is where the renderer expects the graph.
const DefaultGraphPath = "public/courses-graph.json"

// EncodeGraph writes g as compact JSON.
func EncodeGraph(w io.Writer, g *graph.Graph) error {
	if g == nil {
		g = &graph.Graph{}
	}
	if g.Nodes == nil {
		g.Nodes = []graph.Node{}
	}
	if g.Links == nil {
		g.Links = []graph.Link{}
	}
	return json.NewEncoder(w).Encode(g)
}

// WriteGraphJSON writes g to path, creating parent directories. The file is
// replaced atomically so a renderer never reads a partial graph.
func WriteGraphJSON(path string, g *graph.Graph) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".courses-graph-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := EncodeGraph(tmp, g); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding graph: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
