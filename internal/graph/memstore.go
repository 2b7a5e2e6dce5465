package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	dgraph "github.com/dominikbraun/graph"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store in memory. File-to-file USED_IN topology lives in
// a dominikbraun/graph directed graph; nodes and the full edge list live in
// maps guarded by a sync.RWMutex.
type MemStore struct {
	mu       sync.RWMutex
	files    map[string]FileNode
	symbols  map[string]SymbolNode // key: "filePath:name"
	modules  map[string]ModuleNode
	edges    []Edge
	edgeSet  map[Edge]bool
	topology dgraph.Graph[string, string]
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{
		files:    make(map[string]FileNode),
		symbols:  make(map[string]SymbolNode),
		modules:  make(map[string]ModuleNode),
		edgeSet:  make(map[Edge]bool),
		topology: dgraph.New(dgraph.StringHash, dgraph.Directed()),
	}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// AddFile stores a file node keyed by its path.
func (m *MemStore) AddFile(_ context.Context, node FileNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[node.Path] = node
	return m.addVertex(node.Path)
}

// AddSymbol stores a symbol node keyed by "filePath:name".
func (m *MemStore) AddSymbol(_ context.Context, node SymbolNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.symbols[SymbolID(node.FilePath, node.Name)] = node
	return nil
}

// AddModule stores a module node keyed by name.
func (m *MemStore) AddModule(_ context.Context, node ModuleNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modules[node.Name] = node
	return nil
}

// AddEdge records edge unless an identical edge already exists. USED_IN
// edges also join the file topology.
func (m *MemStore) AddEdge(_ context.Context, edge Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.edgeSet[edge] {
		return nil
	}
	if edge.Kind == EdgeKindUsedIn {
		if err := m.addVertex(edge.SourceID); err != nil {
			return err
		}
		if err := m.addVertex(edge.TargetID); err != nil {
			return err
		}
		err := m.topology.AddEdge(edge.SourceID, edge.TargetID)
		if err != nil && !errors.Is(err, dgraph.ErrEdgeAlreadyExists) {
			return fmt.Errorf("memstore: add edge %s->%s: %w", edge.SourceID, edge.TargetID, err)
		}
	}
	m.edgeSet[edge] = true
	m.edges = append(m.edges, edge)
	return nil
}

func (m *MemStore) addVertex(path string) error {
	err := m.topology.AddVertex(path)
	if err != nil && !errors.Is(err, dgraph.ErrVertexAlreadyExists) {
		return fmt.Errorf("memstore: add vertex %s: %w", path, err)
	}
	return nil
}

// GetFile returns the file node for the given path, or nil if not found.
func (m *MemStore) GetFile(_ context.Context, path string) (*FileNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[path]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

// GetSymbol returns the symbol for the given file path and name, or nil if not found.
func (m *MemStore) GetSymbol(_ context.Context, filePath, name string) (*SymbolNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.symbols[SymbolID(filePath, name)]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// QuerySymbols returns symbols whose name contains query (case-insensitive),
// ordered by file path then name, up to limit results. A limit <= 0 returns
// all matches.
func (m *MemStore) QuerySymbols(_ context.Context, query string, limit int) ([]SymbolNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lowerQuery := strings.ToLower(query)
	var results []SymbolNode
	for _, sym := range m.symbols {
		if strings.Contains(strings.ToLower(sym.Name), lowerQuery) {
			results = append(results, sym)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].FilePath != results[j].FilePath {
			return results[i].FilePath < results[j].FilePath
		}
		return results[i].Name < results[j].Name
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// GetAllEdges returns a copy of all edges in insertion order.
func (m *MemStore) GetAllEdges(_ context.Context) ([]Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Edge, len(m.edges))
	copy(out, m.edges)
	return out, nil
}

// GetDependencies performs a BFS over the file topology from path in the given
// direction, up to maxDepth hops. It returns one DependencyChain per
// reachable file.
func (m *MemStore) GetDependencies(_ context.Context, path string, direction Direction, maxDepth int) ([]DependencyChain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if maxDepth <= 0 {
		return nil, nil
	}

	var adjacency map[string]map[string]dgraph.Edge[string]
	var err error
	switch direction {
	case DirectionDownstream:
		adjacency, err = m.topology.AdjacencyMap()
	case DirectionUpstream:
		adjacency, err = m.topology.PredecessorMap()
	default:
		return nil, fmt.Errorf("memstore: unknown direction: %s", direction)
	}
	if err != nil {
		return nil, fmt.Errorf("memstore: adjacency: %w", err)
	}
	if _, ok := adjacency[path]; !ok {
		return nil, nil
	}

	type bfsEntry struct {
		id   string
		path []string
	}

	visited := map[string]bool{path: true}
	queue := []bfsEntry{{id: path, path: []string{path}}}
	var chains []DependencyChain

	for depth := 0; depth < maxDepth && len(queue) > 0; depth++ {
		var nextQueue []bfsEntry
		for _, entry := range queue {
			for _, nb := range sortedKeys(adjacency[entry.id]) {
				if visited[nb] {
					continue
				}
				visited[nb] = true
				newPath := make([]string, len(entry.path), len(entry.path)+1)
				copy(newPath, entry.path)
				newPath = append(newPath, nb)
				chains = append(chains, DependencyChain{
					Nodes: newPath,
					Depth: len(newPath) - 1,
				})
				nextQueue = append(nextQueue, bfsEntry{id: nb, path: newPath})
			}
		}
		queue = nextQueue
	}

	return chains, nil
}

// Stats returns counts of all node kinds and edges in the graph.
func (m *MemStore) Stats(_ context.Context) (*GraphStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &GraphStats{
		FileCount:   len(m.files),
		SymbolCount: len(m.symbols),
		ModuleCount: len(m.modules),
		EdgeCount:   len(m.edges),
	}, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
