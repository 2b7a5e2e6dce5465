package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/repograph/internal/extract"
	"github.com/dusk-indust/repograph/internal/graph"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var fixedNow = func() time.Time { return time.Date(2026, 3, 9, 14, 30, 0, 0, time.UTC) }

// sampleResult is a small extraction over three units: pkg/util.py defines
// helper and Widget, app.py imports and uses them twice, empty.py has no
// facts, and broken.py failed to scan.
func sampleResult() *extract.Result {
	return &extract.Result{
		Root:      "/work/project",
		LocalPath: "/work/project",
		Units:     []string{"app.py", "broken.py", "empty.py", "pkg/util.py"},
		Facts: []graph.Fact{
			{Kind: graph.FactImport, Symbol: "os", Unit: "app.py", Line: 1},
			{Kind: graph.FactImport, Symbol: "helper", Qualifier: "pkg.util", Unit: "app.py", Line: 2},
			{Kind: graph.FactImport, Symbol: "W", Original: "Widget", Qualifier: "pkg.util", Unit: "app.py", Line: 2},
			{Kind: graph.FactDefinition, Symbol: "main", Unit: "app.py", Line: 4},
			{Kind: graph.FactCall, Symbol: "helper", Unit: "app.py", Line: 5},
			{Kind: graph.FactCall, Symbol: "helper", Unit: "app.py", Line: 6},
			{Kind: graph.FactCall, Symbol: "join", Qualifier: "os.path", Unit: "app.py", Line: 7},
			{Kind: graph.FactDefinition, Symbol: "helper", Unit: "pkg/util.py", Line: 1},
			{Kind: graph.FactClassDefinition, Symbol: "Widget", Unit: "pkg/util.py", Line: 5},
		},
		ScanErrors: []graph.ScanError{
			{Unit: "broken.py", Msg: "syntax error at line 1, column 12", Line: 1},
		},
		Edges: []graph.ResolvedEdge{
			{Defining: "pkg/util.py", Using: "app.py", Kind: graph.FactImport, Symbol: "helper"},
			{Defining: "pkg/util.py", Using: "app.py", Kind: graph.FactCall, Symbol: "helper"},
			{Defining: "pkg/util.py", Using: "app.py", Kind: graph.FactCall, Symbol: "helper"},
		},
		StartedAt: fixedNow(),
		Duration:  1500 * time.Millisecond,
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

// ---------------------------------------------------------------------------
// Naming
// ---------------------------------------------------------------------------

func TestBaseName(t *testing.T) {
	local := sampleResult()
	assert.Equal(t, "folder_upload_project_030926_repoai_extract", BaseName(local, fixedNow()))

	remote := sampleResult()
	remote.Root = "https://github.com/org/tools.git"
	remote.LocalPath = "cloned_repos/tools"
	assert.Equal(t, "github_tools_030926_repoai_extract", BaseName(remote, fixedNow()))
}

// ---------------------------------------------------------------------------
// CSV
// ---------------------------------------------------------------------------

func TestCSVSink(t *testing.T) {
	dir := t.TempDir()
	sink := &CSVSink{Dir: dir, Now: fixedNow}
	res := sampleResult()

	require.NoError(t, sink.Write(context.Background(), res))

	factsPath, edgesPath := sink.Paths(res)
	assert.Equal(t, filepath.Join(dir, "folder_upload_project_030926_repoai_extract.csv"), factsPath)
	assert.Equal(t, filepath.Join(dir, "folder_upload_project_030926_repoai_extract_edges.csv"), edgesPath)

	facts := readCSV(t, factsPath)
	require.Len(t, facts, len(res.Facts)+1)
	assert.Equal(t, csvHeader, facts[0])
	assert.Equal(t, []string{"Import", "os", "", "", "app.py"}, facts[1])
	assert.Equal(t, []string{"Import", "pkg.util", "helper", "", "app.py"}, facts[2])
	assert.Equal(t, []string{"Definition", "app.py", "main", "app.py", ""}, facts[4])
	assert.Equal(t, []string{"Call", "", "helper", "", "app.py"}, facts[5])
	assert.Equal(t, []string{"Call", "os.path", "join", "", "app.py"}, facts[7])
	assert.Equal(t, []string{"Class Definition", "pkg/util.py", "Widget", "pkg/util.py", ""}, facts[9])

	edges := readCSV(t, edgesPath)
	require.Len(t, edges, 4, "duplicate edges are preserved")
	assert.Equal(t, []string{"Call", "", "helper", "pkg/util.py", "app.py"}, edges[2])
	assert.Equal(t, edges[2], edges[3])

	rulesPath := sink.RulesPath(res)
	assert.Equal(t, filepath.Join(dir, "folder_upload_project_030926_repoai_extract_import_rules.csv"), rulesPath)
	rules := readCSV(t, rulesPath)
	require.Len(t, rules, 4)
	assert.Equal(t, importRulesHeader, rules[0])
	assert.Equal(t, []string{"Python", "os", `^import ([\w.]+)`, "Standard Import"}, rules[1])
}

func TestImportRules(t *testing.T) {
	facts := []graph.Fact{
		{Kind: graph.FactImport, Symbol: "os", Unit: "a.py"},
		{Kind: graph.FactImport, Symbol: "os", Unit: "b.py"},
		{Kind: graph.FactImport, Symbol: "os.path", Unit: "a.py"},
		{Kind: graph.FactImport, Symbol: "np", Original: "numpy", Unit: "a.py"},
		{Kind: graph.FactImport, Symbol: "helper", Qualifier: "pkg.util", Unit: "a.py"},
		{Kind: graph.FactImport, Symbol: "sibling", Qualifier: ".", Unit: "a.py"},
		{Kind: graph.FactImport, Symbol: "*", Qualifier: "..base", Unit: "a.py"},
		{Kind: graph.FactImport, Symbol: "W", Original: "Widget", Qualifier: "pkg.util", Unit: "a.py"},
		{Kind: graph.FactCall, Symbol: "helper", Unit: "a.py"},
		{Kind: graph.FactDefinition, Symbol: "main", Unit: "a.py"},
	}

	var got []string
	for _, r := range ImportRules(facts) {
		got = append(got, string(r.Kind)+": "+r.Pattern)
	}
	assert.Equal(t, []string{
		"Standard Import: os",
		"Standard Import: os.path",
		"Selective Import: ..base.*",
		"Selective Import: .sibling",
		"Selective Import: pkg.util.helper",
		"Aliased Import: numpy as np",
		"Aliased Import: pkg.util.Widget as W",
	}, got)
}

func TestImportRules_Empty(t *testing.T) {
	assert.Empty(t, ImportRules(nil))

	var buf bytes.Buffer
	require.NoError(t, WriteImportRulesCSV(&buf, nil))
	assert.Equal(t, "language,pattern,regex,reference_type\n", buf.String())
}

func TestWriteEdgesCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEdgesCSV(&buf, nil))
	assert.Equal(t, "type,module,function,file_defined,file_used\n", buf.String())
}

// ---------------------------------------------------------------------------
// JSON
// ---------------------------------------------------------------------------

func TestBuildDocument(t *testing.T) {
	doc := BuildDocument(sampleResult(), fixedNow())

	assert.Equal(t, "/work/project", doc.Root)
	assert.Equal(t, "2026-03-09T14:30:00Z", doc.ExportedAt)
	require.Len(t, doc.Files, 4, "every unit has an entry")

	app := doc.Files["app.py"]
	assert.Equal(t, []string{"main"}, app.Functions)
	assert.Empty(t, app.Classes)
	assert.Equal(t, []string{"os", "helper", "W"}, app.Imports)

	util := doc.Files["pkg/util.py"]
	assert.Equal(t, []string{"helper"}, util.Functions)
	assert.Equal(t, []string{"Widget"}, util.Classes)

	empty := doc.Files["empty.py"]
	assert.NotNil(t, empty.Functions)
	assert.Empty(t, empty.Functions)

	require.Len(t, doc.Errors, 1)
	assert.Equal(t, "broken.py", doc.Errors[0].Unit)
}

func TestJSONSink(t *testing.T) {
	dir := t.TempDir()
	sink := &JSONSink{Dir: dir, Now: fixedNow}
	res := sampleResult()
	require.NoError(t, sink.Write(context.Background(), res))

	data, err := os.ReadFile(sink.Path(res))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	files := raw["files"].(map[string]any)
	empty := files["empty.py"].(map[string]any)
	assert.Equal(t, []any{}, empty["functions"], "empty lists encode as [] not null")
	assert.Len(t, raw["edges"], 3)
}

// ---------------------------------------------------------------------------
// SQLite
// ---------------------------------------------------------------------------

func TestSQLiteSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "extract.db")
	sink := &SQLiteSink{Path: path}
	res := sampleResult()
	ctx := context.Background()

	require.NoError(t, sink.Write(ctx, res))
	// A second write replaces rather than appends.
	require.NoError(t, sink.Write(ctx, res))

	db, err := OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()

	n, err := CountFacts(ctx, db, res.Root)
	require.NoError(t, err)
	assert.Equal(t, len(res.Facts), n)

	edges, err := ReadEdges(ctx, db, res.Root)
	require.NoError(t, err)
	assert.Equal(t, res.Edges, edges, "duplicates and order are preserved")

	var scanErrors int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM scan_errors WHERE root = ?", res.Root).Scan(&scanErrors))
	assert.Equal(t, 1, scanErrors)
}

func TestSQLiteSink_SeparateRoots(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extract.db")
	sink := &SQLiteSink{Path: path}
	ctx := context.Background()

	first := sampleResult()
	second := sampleResult()
	second.Root = "/work/other"
	second.Edges = second.Edges[:1]
	require.NoError(t, sink.Write(ctx, first))
	require.NoError(t, sink.Write(ctx, second))

	db, err := OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()

	a, err := ReadEdges(ctx, db, first.Root)
	require.NoError(t, err)
	b, err := ReadEdges(ctx, db, second.Root)
	require.NoError(t, err)
	assert.Len(t, a, 3)
	assert.Len(t, b, 1)
}

// ---------------------------------------------------------------------------
// Graph
// ---------------------------------------------------------------------------

func TestGraphSink(t *testing.T) {
	store := graph.NewMemStore()
	ctx := context.Background()
	require.NoError(t, (&GraphSink{Store: store}).Write(ctx, sampleResult()))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.FileCount)
	assert.Equal(t, 3, stats.SymbolCount)
	assert.Equal(t, 2, stats.ModuleCount, "os and pkg.util")

	sym, err := store.GetSymbol(ctx, "pkg/util.py", "Widget")
	require.NoError(t, err)
	require.NotNil(t, sym)
	assert.Equal(t, graph.SymbolKindClass, sym.Kind)

	edges, err := store.GetAllEdges(ctx)
	require.NoError(t, err)
	var usedIn []graph.Edge
	for _, e := range edges {
		if e.Kind == graph.EdgeKindUsedIn {
			usedIn = append(usedIn, e)
		}
	}
	assert.Len(t, usedIn, 2, "identical USED_IN edges collapse")

	chains, err := store.GetDependencies(ctx, "pkg/util.py", graph.DirectionDownstream, 1)
	require.NoError(t, err)
	require.Len(t, chains, 1)
	assert.Equal(t, []string{"pkg/util.py", "app.py"}, chains[0].Nodes)
}

func TestModuleName(t *testing.T) {
	assert.Equal(t, "pkg.util", moduleName(graph.Fact{Symbol: "helper", Qualifier: "pkg.util"}))
	assert.Equal(t, "numpy", moduleName(graph.Fact{Symbol: "np", Original: "numpy"}))
	assert.Equal(t, "os", moduleName(graph.Fact{Symbol: "os"}))
}

// ---------------------------------------------------------------------------
// Mermaid
// ---------------------------------------------------------------------------

func TestGenerateMermaid(t *testing.T) {
	store := graph.NewMemStore()
	ctx := context.Background()
	require.NoError(t, LoadGraph(ctx, store, sampleResult()))

	diagram, err := GenerateMermaid(ctx, store)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(diagram, "graph TD\n"))
	assert.Contains(t, diagram, `N0["app.py"]`)
	assert.Contains(t, diagram, `subgraph G1["pkg"]`)
	assert.Contains(t, diagram, `N1["pkg/util.py"]`)
	assert.Contains(t, diagram, "N1 -->|helper| N0")
	assert.Equal(t, 1, strings.Count(diagram, "-->"), "one arrow per file pair")
}

func TestMermaidSink(t *testing.T) {
	dir := t.TempDir()
	sink := &MermaidSink{Dir: dir, Now: fixedNow}
	res := sampleResult()
	require.NoError(t, sink.Write(context.Background(), res))

	data, err := os.ReadFile(sink.Path(res))
	require.NoError(t, err)
	assert.Contains(t, string(data), "-->|helper|")
}

// ---------------------------------------------------------------------------
// Fan-out
// ---------------------------------------------------------------------------

type countingSink struct {
	name  string
	err   error
	calls *atomic.Int32
}

func (s *countingSink) Name() string { return s.name }

func (s *countingSink) Write(ctx context.Context, _ *extract.Result) error {
	s.calls.Add(1)
	if s.err != nil {
		return s.err
	}
	return ctx.Err()
}

func TestWriteAll(t *testing.T) {
	var calls atomic.Int32
	dir := t.TempDir()
	err := WriteAll(context.Background(), sampleResult(),
		&CSVSink{Dir: dir, Now: fixedNow},
		&JSONSink{Dir: dir, Now: fixedNow},
		&countingSink{name: "count", calls: &calls},
	)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 4, "csv writes facts, edges and import rules")
}

func TestWriteAll_Error(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("disk full")
	err := WriteAll(context.Background(), sampleResult(),
		&countingSink{name: "ok", calls: &calls},
		&countingSink{name: "bad", err: boom, calls: &calls},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "bad sink")
}
