package export

import (
	"context"
	"fmt"

	"github.com/dusk-indust/repograph/internal/extract"
	"github.com/dusk-indust/repograph/internal/graph"
)

// GraphSink loads a result into a graph.Store: File, Symbol and Module nodes
// joined by DEFINES, IMPORTED_IN and USED_IN edges. The store merges
// duplicates, so repeated references collapse to one edge.
type GraphSink struct {
	Store graph.Store
}

// Name implements Sink.
func (s *GraphSink) Name() string { return "graph" }

// Write implements Sink.
func (s *GraphSink) Write(ctx context.Context, res *extract.Result) error {
	return LoadGraph(ctx, s.Store, res)
}

// LoadGraph writes res into store.
func LoadGraph(ctx context.Context, store graph.Store, res *extract.Result) error {
	if err := store.InitSchema(ctx); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	for _, u := range res.Units {
		if err := store.AddFile(ctx, graph.FileNode{Path: u, Language: graph.LangPython}); err != nil {
			return fmt.Errorf("add file %s: %w", u, err)
		}
	}

	for _, f := range res.Facts {
		switch {
		case f.Kind.IsDefinition():
			sym := graph.SymbolNode{
				Name:     f.Symbol,
				Kind:     graph.SymbolKindFor(f.Kind),
				FilePath: f.Unit,
				Line:     f.Line,
			}
			if err := store.AddSymbol(ctx, sym); err != nil {
				return fmt.Errorf("add symbol %s: %w", f.Symbol, err)
			}
			edge := graph.Edge{
				SourceID: f.Unit,
				TargetID: graph.SymbolID(f.Unit, f.Symbol),
				Kind:     graph.EdgeKindDefines,
			}
			if err := store.AddEdge(ctx, edge); err != nil {
				return fmt.Errorf("add DEFINES edge: %w", err)
			}

		case f.Kind == graph.FactImport:
			name := moduleName(f)
			if err := store.AddModule(ctx, graph.ModuleNode{Name: name}); err != nil {
				return fmt.Errorf("add module %s: %w", name, err)
			}
			edge := graph.Edge{SourceID: name, TargetID: f.Unit, Kind: graph.EdgeKindImportedIn}
			if err := store.AddEdge(ctx, edge); err != nil {
				return fmt.Errorf("add IMPORTED_IN edge: %w", err)
			}
		}
	}

	for _, e := range res.Edges {
		edge := graph.Edge{
			SourceID: e.Defining,
			TargetID: e.Using,
			Kind:     graph.EdgeKindUsedIn,
			Ref:      e.Kind,
			Symbol:   e.Symbol,
		}
		if err := store.AddEdge(ctx, edge); err != nil {
			return fmt.Errorf("add USED_IN edge: %w", err)
		}
	}
	return nil
}

// moduleName is the module an import fact pulls from: the from-module, or
// the imported name itself for plain imports.
func moduleName(f graph.Fact) string {
	switch {
	case f.Qualifier != "":
		return f.Qualifier
	case f.Original != "":
		return f.Original
	default:
		return f.Symbol
	}
}
