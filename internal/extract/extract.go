// Package extract runs one extraction: walk a root, scan its units and
// resolve references between them.
package extract

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/dusk-indust/repograph/internal/graph"
)

// Result is the outcome of one extraction run.
type Result struct {
	Root       string               `json:"root"`
	LocalPath  string               `json:"localPath"`
	Units      []string             `json:"units"`
	Facts      []graph.Fact         `json:"facts"`
	ScanErrors []graph.ScanError    `json:"scanErrors"`
	Edges      []graph.ResolvedEdge `json:"edges"`
	Collisions []string             `json:"collisions,omitempty"`
	StartedAt  time.Time            `json:"startedAt"`
	Duration   time.Duration        `json:"duration"`
}

// Remote reports whether the run's root was a remote repository reference.
func (r *Result) Remote() bool {
	return r.Root != r.LocalPath
}

// Walker enumerates and scans the units of a root. *graph.Walker implements it.
type Walker interface {
	Walk(ctx context.Context, root string) (*graph.WalkResult, error)
}

// Extractor chains a Walker and the definition resolver.
type Extractor struct {
	walker Walker
	logger *slog.Logger
	now    func() time.Time
}

// New creates an Extractor. A nil logger discards output.
func New(walker Walker, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Extractor{walker: walker, logger: logger, now: time.Now}
}

// Run extracts root. Per-unit scan failures are logged and kept in the
// result; a *graph.WalkFatalError is returned unchanged.
func (e *Extractor) Run(ctx context.Context, root string) (*Result, error) {
	start := e.now()

	walked, err := e.walker.Walk(ctx, root)
	if err != nil {
		return nil, err
	}
	for _, se := range walked.Errors {
		e.logger.Warn("unit skipped", "unit", se.Unit, "error", se.Msg)
	}

	idx := graph.BuildDefinitionIndex(walked.Facts)
	edges := graph.ResolveWith(idx, walked.Facts)
	if edges == nil {
		edges = []graph.ResolvedEdge{}
	}
	collisions := idx.Collisions()
	for _, name := range collisions {
		e.logger.Debug("definition collision", "symbol", name, "units", idx.Definers(name))
	}

	res := &Result{
		Root:       walked.Root,
		LocalPath:  walked.LocalPath,
		Units:      walked.Units,
		Facts:      walked.Facts,
		ScanErrors: walked.Errors,
		Edges:      edges,
		Collisions: collisions,
		StartedAt:  start,
		Duration:   e.now().Sub(start),
	}
	e.logger.Info("extraction complete",
		"root", root,
		"units", len(res.Units),
		"facts", len(res.Facts),
		"edges", len(res.Edges),
		"scanErrors", len(res.ScanErrors),
		"collisions", len(collisions),
		"duration", res.Duration,
	)
	return res, nil
}
