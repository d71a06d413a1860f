// Package cppfrontend is dlogcover's C++ front-end driver: given a
// file's content it produces a parsed translation unit and a shallow
// root AST node per function found in it, via tree-sitter's
// cpp grammar. Grounded on the teacher's internal/parser/parser.go
// (per-extension *tree_sitter.Parser, panic-recovery around Parse, the
// copy-on-parse defensive buffer) and internal/parser/unified_extractor.go
// (single-pass field-based node inspection). Each Driver instance owns a
// private *tree_sitter.Parser, so a worker pool gives one Driver per
// goroutine rather than sharing one across threads.
package cppfrontend

import (
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"

	"github.com/dlogcover/dlogcover/internal/astwalk"
	"github.com/dlogcover/dlogcover/internal/dlog"
	"github.com/dlogcover/dlogcover/internal/logident"
	"github.com/dlogcover/dlogcover/internal/pathutil"
	"github.com/dlogcover/dlogcover/internal/types"
)

// Driver holds one tree-sitter parser instance set up for C/C++. Not safe
// for concurrent use from multiple goroutines — callers create one Driver
// per worker.
type Driver struct {
	parser *tree_sitter.Parser
}

// New sets up a fresh, re-entrant driver instance.
func New() (*Driver, error) {
	parser := tree_sitter.NewParser()
	lang := tree_sitter.NewLanguage(tree_sitter_cpp.Language())
	if err := parser.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("cppfrontend: set language: %w", err)
	}
	return &Driver{parser: parser}, nil
}

// Close releases the underlying tree-sitter parser.
func (d *Driver) Close() {
	if d.parser != nil {
		d.parser.Close()
	}
}

// Result is the outcome of parsing one file. A failed parse carries
// ParseSuccess=false and a diagnostic message rather than an error, so
// callers can fold it into a per-file result instead of aborting.
type Result struct {
	ParseSuccess bool
	Diagnostic   string
	Functions    []*types.ASTNodeInfo
}

// ParseFile parses content and walks every function definition it finds,
// classifying log calls via id. A tree-sitter panic, or any other parse
// failure, is caught and reported as a non-fatal per-file Result rather
// than propagated, so a worker pool can continue with the next file.
func (d *Driver) ParseFile(path string, content []byte, id *logident.Identifier) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			dlog.Printf(dlog.ComponentCppFront, "tree-sitter panic in %s: %v", path, r)
			result = Result{ParseSuccess: false, Diagnostic: fmt.Sprintf("panic: %v", r)}
		}
	}()

	canonPath := path
	if c, err := pathutil.Canonical(path); err == nil {
		canonPath = c
	}

	// tree-sitter's C library mutates the input buffer via CGO; make a
	// defensive copy per the teacher's copy-on-parse pattern.
	buf := make([]byte, len(content))
	copy(buf, content)

	tree := d.parser.Parse(buf, nil)
	if tree == nil {
		return Result{ParseSuccess: false, Diagnostic: "tree-sitter returned a nil tree"}
	}
	defer tree.Close()

	var functions []*types.ASTNodeInfo
	root := tree.RootNode()
	collectFunctions(root, buf, canonPath, id, false, &functions)

	return Result{ParseSuccess: true, Functions: functions}
}

// collectFunctions walks n looking for function_definition nodes, walking
// each one's body with astwalk and appending the resulting root. inClass
// tracks whether n is nested under a class/struct body, to distinguish
// KindMethod from KindFunction.
func collectFunctions(n tree_sitter.Node, content []byte, file string, id *logident.Identifier, inClass bool, out *[]*types.ASTNodeInfo) {
	switch n.Kind() {
	case "function_definition":
		if fn := buildFunctionNode(n, content, file, id, inClass); fn != nil {
			*out = append(*out, fn)
		}
		return
	case "class_specifier", "struct_specifier":
		inClass = true
	}

	count := n.NamedChildCount()
	for i := uint(0); i < count; i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}
		collectFunctions(*child, content, file, id, inClass, out)
	}
}

func buildFunctionNode(n tree_sitter.Node, content []byte, file string, id *logident.Identifier, inClass bool) *types.ASTNodeInfo {
	body := n.ChildByFieldName("body")
	if body == nil {
		// Declaration-only (no body) — nothing to walk.
		return nil
	}

	kind := types.KindFunction
	if inClass {
		kind = types.KindMethod
	}

	bodyNode := newStatementNode(*body, content, file)
	walked := astwalk.WalkFunction(bodyNode, id)

	return &types.ASTNodeInfo{
		Kind:        kind,
		Name:        functionName(n, content),
		Location:    location(n, file),
		EndLocation: endLocation(n, file),
		Text:        nodeText(n, content),
		HasLogging:  walked.HasLogging,
		Children:    walked.Children,
	}
}

// functionName walks a function_definition's declarator looking for the
// innermost identifier — C++ declarators nest pointer/reference/function
// wrappers around the actual name.
func functionName(n tree_sitter.Node, content []byte) string {
	declarator := n.ChildByFieldName("declarator")
	for declarator != nil {
		switch declarator.Kind() {
		case "identifier", "field_identifier", "qualified_identifier", "destructor_name", "operator_name":
			return nodeText(*declarator, content)
		case "function_declarator":
			inner := declarator.ChildByFieldName("declarator")
			if inner == nil {
				return nodeText(*declarator, content)
			}
			declarator = inner
		default:
			inner := declarator.ChildByFieldName("declarator")
			if inner == nil {
				return nodeText(*declarator, content)
			}
			declarator = inner
		}
	}
	return ""
}

func location(n tree_sitter.Node, file string) types.Location {
	p := n.StartPosition()
	return types.Location{File: file, Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

func endLocation(n tree_sitter.Node, file string) types.Location {
	p := n.EndPosition()
	return types.Location{File: file, Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

func nodeText(n tree_sitter.Node, content []byte) string {
	start, end := n.StartByte(), n.EndByte()
	if end > uint(len(content)) || start > end {
		return ""
	}
	return string(content[start:end])
}
