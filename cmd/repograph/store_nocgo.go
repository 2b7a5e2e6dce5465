//go:build !cgo

package main

import (
	"errors"

	"github.com/dusk-indust/repograph/internal/graph"
)

func openGraphStore(path string) (graph.Store, error) {
	if path != "" {
		return nil, errors.New("persistent graph store requires a cgo build")
	}
	return graph.NewMemStore(), nil
}

func newRunStore() (graph.Store, error) {
	return graph.NewMemStore(), nil
}
