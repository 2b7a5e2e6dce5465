package graph

import (
	"context"
	"io"
)

// Store is the interface for the graph form of an extraction.
// Implementations: KuzuStore (persistent, cgo), MemStore (in-memory).
// Writes are merges: adding an existing node or an identical edge is a no-op.
type Store interface {
	io.Closer

	// Schema setup, called before any data is inserted.
	InitSchema(ctx context.Context) error

	// Write operations.
	AddFile(ctx context.Context, node FileNode) error
	AddSymbol(ctx context.Context, node SymbolNode) error
	AddModule(ctx context.Context, node ModuleNode) error
	AddEdge(ctx context.Context, edge Edge) error

	// Read operations.
	GetFile(ctx context.Context, path string) (*FileNode, error)
	GetSymbol(ctx context.Context, filePath, name string) (*SymbolNode, error)
	QuerySymbols(ctx context.Context, query string, limit int) ([]SymbolNode, error)
	GetAllEdges(ctx context.Context) ([]Edge, error)

	// GetDependencies follows USED_IN edges between files.
	GetDependencies(ctx context.Context, path string, direction Direction, maxDepth int) ([]DependencyChain, error)

	// Stats.
	Stats(ctx context.Context) (*GraphStats, error)
}

// Direction controls dependency traversal direction.
type Direction string

const (
	DirectionUpstream   Direction = "upstream"   // files this file uses
	DirectionDownstream Direction = "downstream" // files using this file
)
