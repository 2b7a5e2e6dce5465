//go:build cgo

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dusk-indust/repograph/internal/graph"
)

// openGraphStore opens the Kuzu database at path, or an in-memory graph
// when path is empty.
func openGraphStore(path string) (graph.Store, error) {
	if path == "" {
		return graph.NewMemStore(), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create graph directory: %w", err)
	}
	return graph.NewKuzuFileStore(path)
}

// newRunStore backs the MCP query tools with an in-memory Kuzu database.
func newRunStore() (graph.Store, error) {
	return graph.NewKuzuStore()
}
