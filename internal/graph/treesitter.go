package graph

import (
	"context"
	"fmt"
	"unicode/utf8"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// TreeSitterScanner implements Scanner for Python using tree-sitter.
// A new tree-sitter parser is created per Scan call, so this type is safe for
// sequential use but individual Scan calls are not thread-safe.
type TreeSitterScanner struct {
	language *tree_sitter.Language
}

var _ Scanner = (*TreeSitterScanner)(nil)

// NewTreeSitterScanner creates a scanner with the Python grammar registered.
func NewTreeSitterScanner() *TreeSitterScanner {
	return &TreeSitterScanner{
		language: tree_sitter.NewLanguage(tree_sitter_python.Language()),
	}
}

// Language returns LangPython.
func (s *TreeSitterScanner) Language() Language {
	return LangPython
}

// Scan parses unit and extracts its imports, definitions and calls.
func (s *TreeSitterScanner) Scan(_ context.Context, unit SourceUnit) ([]Fact, error) {
	if !utf8.Valid(unit.Source) {
		return nil, &ScanError{Unit: unit.ID, Msg: "invalid UTF-8 encoding"}
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(s.language); err != nil {
		return nil, &ScanError{Unit: unit.ID, Msg: fmt.Sprintf("set language: %v", err)}
	}

	tree := parser.Parse(unit.Source, nil)
	if tree == nil {
		return nil, &ScanError{Unit: unit.ID, Msg: "tree-sitter returned nil tree"}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, syntaxError(unit.ID, root)
	}
	if legacy := firstLegacyStatement(root); legacy != nil {
		return nil, legacySyntaxError(unit.ID, legacy)
	}

	ext := &pyExtractor{source: unit.Source, unit: unit.ID}
	return ext.Extract(root), nil
}

// syntaxError locates the first ERROR or MISSING node under root and builds a
// ScanError pointing at it.
func syntaxError(unitID string, root *tree_sitter.Node) *ScanError {
	bad := firstErrorNode(root)
	if bad == nil {
		return &ScanError{Unit: unitID, Msg: "syntax error"}
	}
	pos := bad.StartPosition()
	line := int(pos.Row) + 1
	return &ScanError{
		Unit: unitID,
		Msg:  fmt.Sprintf("syntax error at line %d, column %d", line, int(pos.Column)+1),
		Line: line,
	}
}

func firstErrorNode(node *tree_sitter.Node) *tree_sitter.Node {
	if node.IsError() || node.IsMissing() {
		return node
	}
	if !node.HasError() {
		return nil
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if bad := firstErrorNode(child); bad != nil {
			return bad
		}
	}
	return nil
}

// legacyStatements are Python 2 statement forms the grammar still accepts
// but Python 3 rejects.
var legacyStatements = map[string]string{
	"print_statement": "print",
	"exec_statement":  "exec",
}

func firstLegacyStatement(node *tree_sitter.Node) *tree_sitter.Node {
	if _, ok := legacyStatements[node.Kind()]; ok {
		return node
	}
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		if found := firstLegacyStatement(child); found != nil {
			return found
		}
	}
	return nil
}

func legacySyntaxError(unitID string, node *tree_sitter.Node) *ScanError {
	pos := node.StartPosition()
	line := int(pos.Row) + 1
	return &ScanError{
		Unit: unitID,
		Msg: fmt.Sprintf("syntax error at line %d, column %d: Python 2 %s statement",
			line, int(pos.Column)+1, legacyStatements[node.Kind()]),
		Line: line,
	}
}
