package mcptools

import (
	"github.com/dusk-indust/repograph/internal/export"
	"github.com/dusk-indust/repograph/internal/graph"
)

// ---------------------------------------------------------------------------
// clone_repo
// ---------------------------------------------------------------------------

// CloneRepoInput is the input for the clone_repo tool.
type CloneRepoInput struct {
	RepoURL string `json:"repo_url" jsonschema:"remote git URL to clone (https, ssh or git@host:org/repo.git)"`
}

// CloneRepoOutput is the output for the clone_repo tool.
type CloneRepoOutput struct {
	RepoName string   `json:"repo_name"`
	Files    []string `json:"files"`
}

// ---------------------------------------------------------------------------
// run_extraction
// ---------------------------------------------------------------------------

// RunExtractionInput is the input for the run_extraction tool.
type RunExtractionInput struct {
	RepoName string `json:"repo_name" jsonschema:"name of a repository previously cloned with clone_repo"`
}

// RunExtractionOutput summarizes one run.
type RunExtractionOutput struct {
	RunID      string           `json:"run_id"`
	RepoName   string           `json:"repo_name"`
	Units      int              `json:"units"`
	Facts      int              `json:"facts"`
	Edges      int              `json:"edges"`
	ScanErrors int              `json:"scan_errors"`
	Collisions []string         `json:"collisions"`
	Graph      graph.GraphStats `json:"graph"`
}

// ---------------------------------------------------------------------------
// get_result
// ---------------------------------------------------------------------------

// GetResultInput is the input for the get_result tool.
type GetResultInput struct {
	RunID string `json:"run_id,omitempty" jsonschema:"run to fetch; the most recent run when empty"`
}

// GetResultOutput carries the JSON document of a run.
type GetResultOutput struct {
	RunID    string           `json:"run_id"`
	Document *export.Document `json:"document"`
}

// ---------------------------------------------------------------------------
// query_symbols
// ---------------------------------------------------------------------------

// QuerySymbolsInput is the input for the query_symbols tool.
type QuerySymbolsInput struct {
	Query string `json:"query" jsonschema:"case-insensitive substring to match against symbol names"`
	Kind  string `json:"kind,omitempty" jsonschema:"filter by symbol kind: function or class"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum results to return, default 20"`
}

// QuerySymbolsOutput is the output for the query_symbols tool.
type QuerySymbolsOutput struct {
	Symbols []graph.SymbolNode `json:"symbols"`
	Total   int                `json:"total"`
}

// ---------------------------------------------------------------------------
// get_dependencies
// ---------------------------------------------------------------------------

// GetDependenciesInput is the input for the get_dependencies tool.
type GetDependenciesInput struct {
	Path      string `json:"path" jsonschema:"unit path relative to the repository root"`
	Direction string `json:"direction,omitempty" jsonschema:"upstream (files this file uses) or downstream (files using it), default downstream"`
	MaxDepth  int    `json:"max_depth,omitempty" jsonschema:"maximum traversal depth, default 5"`
}

// GetDependenciesOutput is the output for the get_dependencies tool.
type GetDependenciesOutput struct {
	Chains []graph.DependencyChain `json:"chains"`
}
