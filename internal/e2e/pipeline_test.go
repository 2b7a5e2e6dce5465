//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/repograph/internal/export"
	"github.com/dusk-indust/repograph/internal/extract"
	"github.com/dusk-indust/repograph/internal/graph"
	"github.com/dusk-indust/repograph/internal/mcptools"
	"github.com/dusk-indust/repograph/internal/server"
	"github.com/dusk-indust/repograph/internal/service"
)

const fixturesDir = "../../testdata/fixtures"

// fixtureCloner treats the fixtures directory as the clone directory.
type fixtureCloner struct{}

func (fixtureCloner) CheckGit(context.Context) error { return nil }

func (fixtureCloner) Clone(context.Context, string) (string, error) {
	return "", assert.AnError
}

func (fixtureCloner) Path(name string) string { return filepath.Join(fixturesDir, name) }

// TestPipeline_E2E exercises one service through both boundaries: a run
// started over HTTP is visible to MCP, and an MCP run is visible over HTTP.
func TestPipeline_E2E(t *testing.T) {
	ctx := context.Background()
	outDir := t.TempDir()
	dbPath := filepath.Join(outDir, "repograph.db")

	w, err := graph.NewWalker(graph.NewTreeSitterScanner(), graph.WalkerOptions{ExcludeDirs: []string{"venv"}})
	require.NoError(t, err)
	svc, err := service.New(fixtureCloner{}, extract.New(w, nil), service.Options{
		Sinks: []export.Sink{
			&export.CSVSink{Dir: outDir},
			&export.JSONSink{Dir: outDir},
			&export.SQLiteSink{Path: dbPath},
		},
	})
	require.NoError(t, err)

	tools := mcptools.NewRepoTools(svc, nil)
	defer tools.Close()
	mcpServer := mcptools.NewMCPServer(tools)

	ts := httptest.NewServer(server.New(svc, server.Options{MCP: mcptools.Handler(mcpServer)}).Handler())
	defer ts.Close()

	// --- HTTP parse ---
	resp, err := http.Get(ts.URL + "/parse/py_project")
	require.NoError(t, err)
	var parsed server.RunResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, parsed.Edges, 4)

	// --- MCP sees the same run ---
	st, ct := mcp.NewInMemoryTransports()
	_, err = mcpServer.Connect(ctx, st, nil)
	require.NoError(t, err)
	session, err := mcp.NewClient(&mcp.Implementation{Name: "e2e", Version: "1.0.0"}, nil).Connect(ctx, ct, nil)
	require.NoError(t, err)
	defer session.Close()

	result, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "get_result", Arguments: map[string]any{}})
	require.NoError(t, err)
	require.False(t, result.IsError)
	var got mcptools.GetResultOutput
	raw, err := json.Marshal(result.StructuredContent)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, parsed.RunID, got.RunID)
	assert.Equal(t, parsed.Edges, got.Document.Edges)

	// --- MCP run replaces the last run seen over HTTP ---
	result, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "run_extraction",
		Arguments: map[string]any{"repo_name": "py_broken"},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)

	resp, err = http.Get(ts.URL + "/get_parsed_data")
	require.NoError(t, err)
	var last server.RunResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&last))
	resp.Body.Close()
	assert.Len(t, last.Errors, 1)
	assert.Contains(t, last.Files, "good_two.py")

	// --- SQLite holds both runs ---
	db, err := export.OpenSQLite(dbPath)
	require.NoError(t, err)
	defer db.Close()
	edges, err := export.ReadEdges(ctx, db, filepath.Join(fixturesDir, "py_project"))
	require.NoError(t, err)
	assert.Equal(t, parsed.Edges, edges)
}
