package graph

import "sort"

// DefinitionIndex maps a symbol name to the unit that defines it. It is built
// once per run from Definition and ClassDefinition facts. When several units
// define the same name the last one seen wins; the index does not
// disambiguate by qualifier or scope.
type DefinitionIndex struct {
	defs map[string]string
	// definers keeps every distinct unit per name, for collision reporting only.
	definers map[string][]string
}

// BuildDefinitionIndex runs the first resolution pass over facts.
func BuildDefinitionIndex(facts []Fact) *DefinitionIndex {
	idx := &DefinitionIndex{
		defs:     make(map[string]string),
		definers: make(map[string][]string),
	}
	for _, f := range facts {
		if !f.Kind.IsDefinition() || f.Symbol == "" {
			continue
		}
		idx.defs[f.Symbol] = f.Unit
		if !containsString(idx.definers[f.Symbol], f.Unit) {
			idx.definers[f.Symbol] = append(idx.definers[f.Symbol], f.Unit)
		}
	}
	return idx
}

// Lookup returns the unit defining name.
func (idx *DefinitionIndex) Lookup(name string) (string, bool) {
	u, ok := idx.defs[name]
	return u, ok
}

// Len returns the number of distinct defined names.
func (idx *DefinitionIndex) Len() int {
	return len(idx.defs)
}

// Collisions returns, sorted, the names defined in more than one unit.
// Lookups for these names resolve to the last definer.
func (idx *DefinitionIndex) Collisions() []string {
	var out []string
	for name, units := range idx.definers {
		if len(units) > 1 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Definers returns every unit that defined name, in fact order.
func (idx *DefinitionIndex) Definers(name string) []string {
	units := idx.definers[name]
	out := make([]string, len(units))
	copy(out, units)
	return out
}

// Resolve builds a DefinitionIndex from facts and resolves every Import and
// Call fact against it.
func Resolve(facts []Fact) []ResolvedEdge {
	return ResolveWith(BuildDefinitionIndex(facts), facts)
}

// ResolveWith runs the second resolution pass. For each Import or Call fact it
// tries the qualifier first, then the symbol name. Facts that resolve to their
// own unit, or not at all, produce no edge. Edges come out in fact order and
// are not deduplicated.
func ResolveWith(idx *DefinitionIndex, facts []Fact) []ResolvedEdge {
	var edges []ResolvedEdge
	for _, f := range facts {
		if !f.Kind.IsReference() {
			continue
		}
		defining, ok := resolveFact(idx, f)
		if !ok || defining == f.Unit {
			continue
		}
		edges = append(edges, ResolvedEdge{
			Defining: defining,
			Using:    f.Unit,
			Kind:     f.Kind,
			Symbol:   f.Symbol,
		})
	}
	return edges
}

func resolveFact(idx *DefinitionIndex, f Fact) (string, bool) {
	if f.Qualifier != "" {
		if u, ok := idx.Lookup(f.Qualifier); ok {
			return u, true
		}
	}
	if f.Symbol != "" {
		return idx.Lookup(f.Symbol)
	}
	return "", false
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
