package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- DefinitionIndex ---

func TestBuildDefinitionIndex(t *testing.T) {
	facts := []Fact{
		{Kind: FactImport, Symbol: "os", Unit: "a.py"},
		{Kind: FactDefinition, Symbol: "helper", Unit: "a.py"},
		{Kind: FactClassDefinition, Symbol: "Widget", Unit: "b.py"},
		{Kind: FactCall, Symbol: "print", Unit: "b.py"},
	}
	idx := BuildDefinitionIndex(facts)

	assert.Equal(t, 2, idx.Len())

	u, ok := idx.Lookup("helper")
	require.True(t, ok)
	assert.Equal(t, "a.py", u)

	u, ok = idx.Lookup("Widget")
	require.True(t, ok)
	assert.Equal(t, "b.py", u)

	_, ok = idx.Lookup("os")
	assert.False(t, ok, "imports do not define names")
	_, ok = idx.Lookup("print")
	assert.False(t, ok, "calls do not define names")
}

func TestDefinitionIndex_Collisions(t *testing.T) {
	facts := []Fact{
		{Kind: FactDefinition, Symbol: "run", Unit: "a.py"},
		{Kind: FactDefinition, Symbol: "run", Unit: "a.py"},
		{Kind: FactDefinition, Symbol: "only", Unit: "a.py"},
		{Kind: FactDefinition, Symbol: "run", Unit: "c.py"},
		{Kind: FactClassDefinition, Symbol: "Model", Unit: "c.py"},
		{Kind: FactDefinition, Symbol: "Model", Unit: "d.py"},
	}
	idx := BuildDefinitionIndex(facts)

	assert.Equal(t, []string{"Model", "run"}, idx.Collisions())
	assert.Equal(t, []string{"a.py", "c.py"}, idx.Definers("run"))
	assert.Equal(t, []string{"a.py"}, idx.Definers("only"))
	assert.Empty(t, idx.Definers("missing"))

	u, _ := idx.Lookup("Model")
	assert.Equal(t, "d.py", u)
}

// --- Resolve: scenarios ---

func TestResolve_QualifiedCallThroughModuleImport(t *testing.T) {
	// a defines helper; b does "import a" and calls a.helper().
	facts := []Fact{
		{Kind: FactDefinition, Symbol: "helper", Unit: "a"},
		{Kind: FactImport, Symbol: "a", Unit: "b"},
		{Kind: FactCall, Symbol: "helper", Qualifier: "a", Unit: "b"},
	}

	edges := Resolve(facts)
	assert.Equal(t, []ResolvedEdge{
		{Defining: "a", Using: "b", Kind: FactCall, Symbol: "helper"},
	}, edges)
}

func TestResolve_ClassInstantiation(t *testing.T) {
	facts := []Fact{
		{Kind: FactClassDefinition, Symbol: "Widget", Unit: "a"},
		{Kind: FactCall, Symbol: "Widget", Unit: "b"},
	}

	edges := Resolve(facts)
	assert.Equal(t, []ResolvedEdge{
		{Defining: "a", Using: "b", Kind: FactCall, Symbol: "Widget"},
	}, edges)
}

func TestResolve_LastDefinitionWins(t *testing.T) {
	// Walk order is a, b, c: c defines run last.
	facts := []Fact{
		{Kind: FactDefinition, Symbol: "run", Unit: "a"},
		{Kind: FactCall, Symbol: "run", Unit: "b"},
		{Kind: FactDefinition, Symbol: "run", Unit: "c"},
	}

	edges := Resolve(facts)
	require.Len(t, edges, 1)
	assert.Equal(t, "c", edges[0].Defining, "the last definer in fact order wins")
	assert.Equal(t, "b", edges[0].Using)
}

// --- Resolve: rules ---

func TestResolve_QualifierBeforeSymbol(t *testing.T) {
	facts := []Fact{
		{Kind: FactClassDefinition, Symbol: "Store", Unit: "store.py"},
		{Kind: FactDefinition, Symbol: "save", Unit: "other.py"},
		{Kind: FactCall, Symbol: "save", Qualifier: "Store", Unit: "app.py"},
	}

	edges := Resolve(facts)
	require.Len(t, edges, 1)
	assert.Equal(t, "store.py", edges[0].Defining)
	assert.Equal(t, "save", edges[0].Symbol, "the edge carries the fact's symbol")
}

func TestResolve_FromImport(t *testing.T) {
	facts := []Fact{
		{Kind: FactDefinition, Symbol: "helper", Unit: "pkg/util.py"},
		{Kind: FactImport, Symbol: "helper", Qualifier: "pkg.util", Unit: "app.py"},
	}

	edges := Resolve(facts)
	assert.Equal(t, []ResolvedEdge{
		{Defining: "pkg/util.py", Using: "app.py", Kind: FactImport, Symbol: "helper"},
	}, edges)
}

func TestResolve_NoSelfEdges(t *testing.T) {
	facts := []Fact{
		{Kind: FactDefinition, Symbol: "main", Unit: "app.py"},
		{Kind: FactDefinition, Symbol: "helper", Unit: "app.py"},
		{Kind: FactCall, Symbol: "helper", Unit: "app.py"},
		{Kind: FactCall, Symbol: "main", Unit: "app.py"},
	}
	assert.Empty(t, Resolve(facts))
}

func TestResolve_UndefinedSymbols(t *testing.T) {
	facts := []Fact{
		{Kind: FactImport, Symbol: "os", Unit: "app.py"},
		{Kind: FactCall, Symbol: "print", Unit: "app.py"},
		{Kind: FactCall, Symbol: "join", Qualifier: "os.path", Unit: "app.py"},
	}
	assert.Empty(t, Resolve(facts))
}

func TestResolve_AliasNotResolvedByOriginal(t *testing.T) {
	facts := []Fact{
		{Kind: FactClassDefinition, Symbol: "Widget", Unit: "w.py"},
		{Kind: FactImport, Symbol: "W", Original: "Widget", Qualifier: "ui", Unit: "app.py"},
		{Kind: FactCall, Symbol: "W", Unit: "app.py"},
	}
	assert.Empty(t, Resolve(facts), "aliases resolve by the alias name only")
}

func TestResolve_DuplicatesKept(t *testing.T) {
	facts := []Fact{
		{Kind: FactDefinition, Symbol: "helper", Unit: "a.py"},
		{Kind: FactCall, Symbol: "helper", Unit: "b.py"},
		{Kind: FactCall, Symbol: "helper", Unit: "b.py"},
	}
	assert.Len(t, Resolve(facts), 2, "one edge per reference fact")
}

func TestResolve_Empty(t *testing.T) {
	assert.Empty(t, Resolve(nil))
}

func TestResolve_Deterministic(t *testing.T) {
	facts := []Fact{
		{Kind: FactDefinition, Symbol: "x", Unit: "a.py"},
		{Kind: FactDefinition, Symbol: "y", Unit: "b.py"},
		{Kind: FactCall, Symbol: "x", Unit: "b.py"},
		{Kind: FactCall, Symbol: "y", Unit: "a.py"},
		{Kind: FactImport, Symbol: "x", Qualifier: "a", Unit: "c.py"},
	}
	first := Resolve(facts)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Resolve(facts))
	}
	require.Len(t, first, 3)
	assert.Equal(t, "b.py", first[0].Using)
	assert.Equal(t, "a.py", first[1].Using)
	assert.Equal(t, "c.py", first[2].Using)
}

func TestResolveWith_SharedIndex(t *testing.T) {
	defs := []Fact{{Kind: FactDefinition, Symbol: "helper", Unit: "lib.py"}}
	idx := BuildDefinitionIndex(defs)

	refs := []Fact{{Kind: FactCall, Symbol: "helper", Unit: "main.py"}}
	edges := ResolveWith(idx, refs)
	require.Len(t, edges, 1)
	assert.Equal(t, "lib.py", edges[0].Defining)
}

// --- FactKind ---

func TestParseFactKind(t *testing.T) {
	for _, k := range FactKinds {
		got, err := ParseFactKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseFactKind("Assignment")
	assert.Error(t, err)
}

func TestSymbolKindFor(t *testing.T) {
	assert.Equal(t, SymbolKindClass, SymbolKindFor(FactClassDefinition))
	assert.Equal(t, SymbolKindFunction, SymbolKindFor(FactDefinition))
}

func TestFactKind_JSON(t *testing.T) {
	data, err := json.Marshal(Fact{Kind: FactClassDefinition, Symbol: "Widget", Unit: "w.py"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"ClassDefinition","symbol":"Widget","unit":"w.py"}`, string(data))

	var f Fact
	require.NoError(t, json.Unmarshal(data, &f))
	assert.Equal(t, FactClassDefinition, f.Kind)

	assert.Error(t, json.Unmarshal([]byte(`{"kind":"Lambda"}`), &f))
	_, err = json.Marshal(Fact{Kind: FactKind("Lambda")})
	assert.Error(t, err)
}
