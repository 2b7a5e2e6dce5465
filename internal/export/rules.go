package export

import (
	"encoding/csv"
	"io"
	"sort"

	"github.com/dusk-indust/repograph/internal/graph"
)

// ImportPattern classifies the syntactic form of an import.
type ImportPattern string

const (
	PatternStandard  ImportPattern = "Standard Import"
	PatternSelective ImportPattern = "Selective Import"
	PatternAliased   ImportPattern = "Aliased Import"
	PatternUnknown   ImportPattern = "Unknown Pattern"
)

var patternRegex = map[ImportPattern]string{
	PatternStandard:  `^import ([\w.]+)`,
	PatternSelective: `^from ([\w.]+) import (\w+|\*)`,
	PatternAliased:   `^(?:from ([\w.]+) )?import ([\w.]+) as (\w+)`,
	PatternUnknown:   "N/A",
}

var patternOrder = map[ImportPattern]int{
	PatternStandard:  0,
	PatternSelective: 1,
	PatternAliased:   2,
	PatternUnknown:   3,
}

// ImportRule is one distinct import observed in a repository.
type ImportRule struct {
	Pattern string        `json:"pattern"`
	Regex   string        `json:"regex"`
	Kind    ImportPattern `json:"reference_type"`
}

var importRulesHeader = []string{"language", "pattern", "regex", "reference_type"}

// ImportRules derives the distinct import patterns from facts, ordered by
// kind then pattern. Non-import facts are ignored.
func ImportRules(facts []graph.Fact) []ImportRule {
	seen := make(map[ImportRule]bool)
	var rules []ImportRule
	for _, f := range facts {
		if f.Kind != graph.FactImport {
			continue
		}
		kind, pattern := classifyImport(f)
		r := ImportRule{Pattern: pattern, Regex: patternRegex[kind], Kind: kind}
		if seen[r] {
			continue
		}
		seen[r] = true
		rules = append(rules, r)
	}
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Kind != rules[j].Kind {
			return patternOrder[rules[i].Kind] < patternOrder[rules[j].Kind]
		}
		return rules[i].Pattern < rules[j].Pattern
	})
	return rules
}

func classifyImport(f graph.Fact) (ImportPattern, string) {
	switch {
	case f.Symbol == "":
		return PatternUnknown, f.Qualifier
	case f.Original != "":
		name := f.Original
		if f.Qualifier != "" {
			name = joinQualified(f.Qualifier, name)
		}
		return PatternAliased, name + " as " + f.Symbol
	case f.Qualifier != "":
		return PatternSelective, joinQualified(f.Qualifier, f.Symbol)
	default:
		return PatternStandard, f.Symbol
	}
}

// joinQualified avoids a doubled dot for relative modules such as "..".
func joinQualified(module, name string) string {
	if module[len(module)-1] == '.' {
		return module + name
	}
	return module + "." + name
}

// WriteImportRulesCSV writes one row per rule.
func WriteImportRulesCSV(w io.Writer, rules []ImportRule) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(importRulesHeader); err != nil {
		return err
	}
	for _, r := range rules {
		if err := cw.Write([]string{"Python", r.Pattern, r.Regex, string(r.Kind)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
