package graph

import "fmt"

// --- Enums ---

// FactKind classifies a single observation made while scanning a unit.
type FactKind string

const (
	FactImport          FactKind = "Import"
	FactDefinition      FactKind = "Definition"
	FactClassDefinition FactKind = "ClassDefinition"
	FactCall            FactKind = "Call"
)

// FactKinds lists every valid FactKind in emission-group order.
var FactKinds = []FactKind{FactImport, FactDefinition, FactClassDefinition, FactCall}

// ParseFactKind converts a string to a FactKind.
func ParseFactKind(s string) (FactKind, error) {
	for _, k := range FactKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown fact kind: %q", s)
}

func (k FactKind) String() string { return string(k) }

// MarshalText implements encoding.TextMarshaler.
func (k FactKind) MarshalText() ([]byte, error) {
	if _, err := ParseFactKind(string(k)); err != nil {
		return nil, err
	}
	return []byte(k), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *FactKind) UnmarshalText(text []byte) error {
	parsed, err := ParseFactKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// IsDefinition reports whether k names a function or class definition.
func (k FactKind) IsDefinition() bool {
	return k == FactDefinition || k == FactClassDefinition
}

// IsReference reports whether k is resolvable against a DefinitionIndex.
func (k FactKind) IsReference() bool {
	return k == FactImport || k == FactCall
}

// SymbolKind classifies symbols within the code graph.
type SymbolKind string

const (
	SymbolKindFunction SymbolKind = "function"
	SymbolKindClass    SymbolKind = "class"
)

// SymbolKindFor maps a definition fact kind to its graph symbol kind.
func SymbolKindFor(k FactKind) SymbolKind {
	if k == FactClassDefinition {
		return SymbolKindClass
	}
	return SymbolKindFunction
}

// EdgeKind classifies relationships between graph nodes.
type EdgeKind string

const (
	EdgeKindDefines    EdgeKind = "DEFINES"     // File -> Symbol
	EdgeKindImportedIn EdgeKind = "IMPORTED_IN" // Module -> File
	EdgeKindUsedIn     EdgeKind = "USED_IN"     // defining File -> using File
)

// Language identifies the source language handled by the scanner.
type Language string

const LangPython Language = "python"

// DefaultSuffix is the file suffix scanned when none is configured.
const DefaultSuffix = ".py"

// --- Extraction model ---

// SourceUnit is one parseable file. ID is slash-separated and relative to the
// walked root.
type SourceUnit struct {
	ID     string
	Source []byte
}

// Fact is one observation from a single unit.
type Fact struct {
	Kind      FactKind `json:"kind"`
	Symbol    string   `json:"symbol"`
	Qualifier string   `json:"qualifier,omitempty"`
	Unit      string   `json:"unit"`
	Line      int      `json:"line,omitempty"`
	// Original holds the imported name when Symbol is an "as" alias.
	Original string `json:"original,omitempty"`
}

// ResolvedEdge is a directed reference from the unit defining Symbol to the
// unit using it.
type ResolvedEdge struct {
	Defining string   `json:"defining"`
	Using    string   `json:"using"`
	Kind     FactKind `json:"kind"`
	Symbol   string   `json:"symbol"`
}

// --- Graph model ---

// FileNode represents a source file in the code graph.
type FileNode struct {
	Path     string   `json:"path"`
	Language Language `json:"language"`
}

// SymbolNode represents a function or class defined in a file.
type SymbolNode struct {
	Name     string     `json:"name"`
	Kind     SymbolKind `json:"kind"`
	FilePath string     `json:"filePath"`
	Line     int        `json:"line"`
}

// ModuleNode represents an imported module or name.
type ModuleNode struct {
	Name string `json:"name"`
}

// Edge represents a relationship between two graph nodes. Ref and Symbol are
// only set on USED_IN edges.
type Edge struct {
	SourceID string   `json:"sourceId"`
	TargetID string   `json:"targetId"`
	Kind     EdgeKind `json:"kind"`
	Ref      FactKind `json:"ref,omitempty"`
	Symbol   string   `json:"symbol,omitempty"`
}

// GraphStats summarizes a code graph.
type GraphStats struct {
	FileCount   int `json:"fileCount"`
	SymbolCount int `json:"symbolCount"`
	ModuleCount int `json:"moduleCount"`
	EdgeCount   int `json:"edgeCount"`
}

// DependencyChain is an ordered sequence of file paths forming a USED_IN path.
type DependencyChain struct {
	Nodes []string `json:"nodes"`
	Depth int      `json:"depth"`
}

// SymbolID is the graph node ID of a symbol: "filePath:name".
func SymbolID(filePath, name string) string {
	return filePath + ":" + name
}
