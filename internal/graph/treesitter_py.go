package graph

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// pyExtractor collects facts from one Python syntax tree. Facts are gathered
// in a single pre-order traversal into three groups that are concatenated as
// imports, definitions, calls.
type pyExtractor struct {
	source []byte
	unit   string

	imports []Fact
	defs    []Fact
	calls   []Fact
}

// Extract walks root and returns the unit's facts.
func (e *pyExtractor) Extract(root *tree_sitter.Node) []Fact {
	cursor := root.Walk()
	defer cursor.Close()

	e.walk(cursor)

	facts := make([]Fact, 0, len(e.imports)+len(e.defs)+len(e.calls))
	facts = append(facts, e.imports...)
	facts = append(facts, e.defs...)
	facts = append(facts, e.calls...)
	return facts
}

func (e *pyExtractor) walk(cursor *tree_sitter.TreeCursor) {
	node := cursor.Node()

	switch node.Kind() {
	case "import_statement":
		e.extractImport(node)

	case "import_from_statement", "future_import_statement":
		e.extractFromImport(node)

	case "function_definition":
		e.extractDefinition(node, FactDefinition)

	case "class_definition":
		e.extractDefinition(node, FactClassDefinition)

	case "call":
		e.extractCall(node)
	}

	if cursor.GotoFirstChild() {
		e.walk(cursor)
		for cursor.GotoNextSibling() {
			e.walk(cursor)
		}
		cursor.GotoParent()
	}
}

// extractImport handles "import a.b" and "import a.b as c".
func (e *pyExtractor) extractImport(node *tree_sitter.Node) {
	line := lineOf(node)
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "dotted_name":
			e.addImport(child.Utf8Text(e.source), "", "", line)
		case "aliased_import":
			name, alias := e.aliased(child)
			if name != "" {
				e.addImport(name, alias, "", line)
			}
		}
	}
}

// extractFromImport handles "from m import x", "from m import x as y",
// relative modules, wildcard imports and "from __future__ import x". The
// grammar emits __future__ as a keyword, so its module is set here.
func (e *pyExtractor) extractFromImport(node *tree_sitter.Node) {
	line := lineOf(node)
	var module string
	if node.Kind() == "future_import_statement" {
		module = "__future__"
	}
	sawImport := false

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "import":
			sawImport = true
		case "relative_import":
			module = child.Utf8Text(e.source)
		case "dotted_name":
			if !sawImport {
				module = child.Utf8Text(e.source)
				continue
			}
			e.addImport(child.Utf8Text(e.source), "", module, line)
		case "aliased_import":
			name, alias := e.aliased(child)
			if name != "" {
				e.addImport(name, alias, module, line)
			}
		case "wildcard_import":
			e.addImport("*", "", module, line)
		}
	}
}

// aliased returns the name and alias of an aliased_import node.
func (e *pyExtractor) aliased(node *tree_sitter.Node) (string, string) {
	var name, alias string
	if n := node.ChildByFieldName("name"); n != nil {
		name = n.Utf8Text(e.source)
	}
	if a := node.ChildByFieldName("alias"); a != nil {
		alias = a.Utf8Text(e.source)
	}
	return name, alias
}

func (e *pyExtractor) addImport(name, alias, module string, line int) {
	f := Fact{
		Kind:      FactImport,
		Symbol:    name,
		Qualifier: module,
		Unit:      e.unit,
		Line:      line,
	}
	if alias != "" {
		f.Symbol = alias
		f.Original = name
	}
	e.imports = append(e.imports, f)
}

func (e *pyExtractor) extractDefinition(node *tree_sitter.Node, kind FactKind) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Utf8Text(e.source)
	if name == "" {
		return
	}
	e.defs = append(e.defs, Fact{
		Kind:   kind,
		Symbol: name,
		Unit:   e.unit,
		Line:   lineOf(node),
	})
}

// extractCall records calls whose target is a bare name or an attribute on a
// dotted chain of names. Anything else (calls on call results, subscripts,
// lambdas) is not directly resolvable and is skipped.
func (e *pyExtractor) extractCall(node *tree_sitter.Node) {
	fnNode := node.ChildByFieldName("function")
	if fnNode == nil {
		return
	}

	var symbol, qualifier string
	switch fnNode.Kind() {
	case "identifier":
		symbol = fnNode.Utf8Text(e.source)
	case "attribute":
		obj := fnNode.ChildByFieldName("object")
		attr := fnNode.ChildByFieldName("attribute")
		if obj == nil || attr == nil {
			return
		}
		base, ok := e.dottedName(obj)
		if !ok {
			return
		}
		qualifier = base
		symbol = attr.Utf8Text(e.source)
	default:
		return
	}

	if symbol == "" {
		return
	}
	e.calls = append(e.calls, Fact{
		Kind:      FactCall,
		Symbol:    symbol,
		Qualifier: qualifier,
		Unit:      e.unit,
		Line:      lineOf(node),
	})
}

// dottedName renders identifier and attribute chains ("a", "a.b.c").
func (e *pyExtractor) dottedName(node *tree_sitter.Node) (string, bool) {
	switch node.Kind() {
	case "identifier":
		return node.Utf8Text(e.source), true
	case "attribute":
		obj := node.ChildByFieldName("object")
		attr := node.ChildByFieldName("attribute")
		if obj == nil || attr == nil {
			return "", false
		}
		base, ok := e.dottedName(obj)
		if !ok {
			return "", false
		}
		return base + "." + attr.Utf8Text(e.source), true
	default:
		return "", false
	}
}

func lineOf(node *tree_sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}
