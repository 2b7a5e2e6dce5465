package mcptools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/repograph/internal/export"
	"github.com/dusk-indust/repograph/internal/graph"
	"github.com/dusk-indust/repograph/internal/service"
)

// StoreFactory opens an empty graph store for one run.
type StoreFactory func() (graph.Store, error)

// MemStoreFactory is the default StoreFactory.
func MemStoreFactory() (graph.Store, error) { return graph.NewMemStore(), nil }

// RepoTools implements the MCP tool handlers. The graph of the most recent
// run_extraction backs query_symbols and get_dependencies.
type RepoTools struct {
	svc      *service.Service
	newStore StoreFactory
	now      func() time.Time

	mu    sync.RWMutex
	store graph.Store
}

// NewRepoTools creates the tool set over svc. A nil newStore uses
// MemStoreFactory.
func NewRepoTools(svc *service.Service, newStore StoreFactory) *RepoTools {
	if newStore == nil {
		newStore = MemStoreFactory
	}
	return &RepoTools{svc: svc, newStore: newStore, now: time.Now}
}

// Close releases the current graph store.
func (t *RepoTools) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.store == nil {
		return nil
	}
	err := t.store.Close()
	t.store = nil
	return err
}

// CloneRepo clones a remote repository.
func (t *RepoTools) CloneRepo(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CloneRepoInput,
) (*mcp.CallToolResult, CloneRepoOutput, error) {
	res, err := t.svc.Clone(ctx, input.RepoURL)
	if err != nil {
		return nil, CloneRepoOutput{}, err
	}
	files := res.Files
	if files == nil {
		files = []string{}
	}
	return nil, CloneRepoOutput{RepoName: res.RepoName, Files: files}, nil
}

// RunExtraction extracts a cloned repository and loads the result into a
// fresh graph store.
func (t *RepoTools) RunExtraction(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RunExtractionInput,
) (*mcp.CallToolResult, RunExtractionOutput, error) {
	run, err := t.svc.Parse(ctx, input.RepoName)
	if err != nil {
		return nil, RunExtractionOutput{}, err
	}

	store, err := t.newStore()
	if err != nil {
		return nil, RunExtractionOutput{}, fmt.Errorf("open graph store: %w", err)
	}
	if err := export.LoadGraph(ctx, store, run.Result); err != nil {
		store.Close()
		return nil, RunExtractionOutput{}, err
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		store.Close()
		return nil, RunExtractionOutput{}, fmt.Errorf("stats: %w", err)
	}

	t.mu.Lock()
	old := t.store
	t.store = store
	t.mu.Unlock()
	if old != nil {
		old.Close()
	}

	res := run.Result
	collisions := res.Collisions
	if collisions == nil {
		collisions = []string{}
	}
	return nil, RunExtractionOutput{
		RunID:      run.ID,
		RepoName:   run.RepoName,
		Units:      len(res.Units),
		Facts:      len(res.Facts),
		Edges:      len(res.Edges),
		ScanErrors: len(res.ScanErrors),
		Collisions: collisions,
		Graph:      *stats,
	}, nil
}

// GetResult returns the document of a cached run, or of the most recent run.
func (t *RepoTools) GetResult(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input GetResultInput,
) (*mcp.CallToolResult, GetResultOutput, error) {
	var (
		run *service.Run
		ok  bool
	)
	if input.RunID == "" {
		if run, ok = t.svc.Last(); !ok {
			return nil, GetResultOutput{}, service.ErrNoRuns
		}
	} else if run, ok = t.svc.Get(input.RunID); !ok {
		return nil, GetResultOutput{}, fmt.Errorf("%w: %s", service.ErrRunNotFound, input.RunID)
	}
	return nil, GetResultOutput{
		RunID:    run.ID,
		Document: export.BuildDocument(run.Result, t.now()),
	}, nil
}

// QuerySymbols searches definitions of the current graph by name substring.
func (t *RepoTools) QuerySymbols(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QuerySymbolsInput,
) (*mcp.CallToolResult, QuerySymbolsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.store == nil {
		return nil, QuerySymbolsOutput{}, service.ErrNoRuns
	}

	symbols, err := t.store.QuerySymbols(ctx, input.Query, 0)
	if err != nil {
		return nil, QuerySymbolsOutput{}, fmt.Errorf("query symbols: %w", err)
	}

	out := make([]graph.SymbolNode, 0, limit)
	for _, sym := range symbols {
		if input.Kind != "" && sym.Kind != graph.SymbolKind(strings.ToLower(input.Kind)) {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, sym)
	}
	return nil, QuerySymbolsOutput{Symbols: out, Total: len(out)}, nil
}

// GetDependencies traverses USED_IN edges of the current graph from a unit.
func (t *RepoTools) GetDependencies(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetDependenciesInput,
) (*mcp.CallToolResult, GetDependenciesOutput, error) {
	if input.Path == "" {
		return nil, GetDependenciesOutput{}, errors.New("path is required")
	}

	direction := graph.DirectionDownstream
	if strings.EqualFold(input.Direction, string(graph.DirectionUpstream)) {
		direction = graph.DirectionUpstream
	}
	maxDepth := input.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 5
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.store == nil {
		return nil, GetDependenciesOutput{}, service.ErrNoRuns
	}

	chains, err := t.store.GetDependencies(ctx, input.Path, direction, maxDepth)
	if err != nil {
		return nil, GetDependenciesOutput{}, fmt.Errorf("get dependencies: %w", err)
	}
	if chains == nil {
		chains = []graph.DependencyChain{}
	}
	return nil, GetDependenciesOutput{Chains: chains}, nil
}
