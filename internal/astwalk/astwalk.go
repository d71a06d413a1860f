// Package astwalk is dlogcover's AST statement/function/expression
// analyzer: a depth-first walk over a front end's raw parse tree that
// builds the tagged types.ASTNodeInfo forest and
// propagates hasLogging bottom-up. It is front-end-agnostic — it walks
// any parse tree adapted to the RawNode interface below; the C++ front
// end (tree-sitter) is the adapter in this repository, while the Go
// worker bridge builds its ASTNodeInfo forest directly. This mirrors
// the teacher's single-pass UnifiedExtractor shape (internal/parser/unified_extractor.go) rather
// than duplicating traversal logic per language.
package astwalk

import (
	"github.com/dlogcover/dlogcover/internal/logident"
	"github.com/dlogcover/dlogcover/internal/types"
)

// RawKind tags a front end's native statement/expression node with the
// syntactic category the walk dispatches on.
type RawKind int

const (
	RawCompound RawKind = iota
	RawIf
	RawSwitch
	RawFor
	RawWhile
	RawDo
	RawTry
	RawCatch
	RawCallExpr
	RawOther
)

// RawNode is the minimal shape a front end's parse tree must expose for
// astwalk to build a types.ASTNodeInfo tree from it.
type RawNode interface {
	Kind() RawKind
	Location() types.Location
	EndLocation() types.Location
	Text() string

	// Children returns this node's walk-relevant substructure:
	//   Compound: each sub-statement, in order.
	//   If: [thenBranch] or [thenBranch, elseBranch].
	//   Switch/For/While/Do: [body].
	//   Try: [tryBlock, catchHandler1, catchHandler2, ...].
	//   CallExpr/Other: unused (nil).
	Children() []RawNode

	// CalleeName is the callee spelling; only meaningful when
	// Kind() == RawCallExpr.
	CalleeName() string
	// ArgLiterals is the ordered list of string-literal arguments passed
	// positionally to the call.
	ArgLiterals() []string
	// StreamedLiteral is the last string literal streamed via `<<` onto
	// the call's return value, or "" if none.
	StreamedLiteral() string
}

// WalkFunction performs the depth-first walk over body, classifying
// call expressions with id, and returns the root node with hasLogging
// fully propagated.
func WalkFunction(body RawNode, id *logident.Identifier) *types.ASTNodeInfo {
	n := walk(body, id)
	n.PropagateLogging()
	return n
}

func walk(raw RawNode, id *logident.Identifier) *types.ASTNodeInfo {
	if raw == nil {
		return nil
	}

	switch raw.Kind() {
	case RawCompound:
		n := &types.ASTNodeInfo{
			Kind:        types.KindDeclaration,
			Location:    raw.Location(),
			EndLocation: raw.EndLocation(),
			Text:        raw.Text(),
		}
		for _, child := range raw.Children() {
			n.Children = append(n.Children, walk(child, id))
		}
		return n

	case RawIf:
		n := &types.ASTNodeInfo{
			Kind:        types.KindIfStmt,
			Location:    raw.Location(),
			EndLocation: raw.EndLocation(),
			Text:        raw.Text(),
		}
		children := raw.Children()
		if len(children) > 0 {
			n.Children = append(n.Children, walk(children[0], id))
		}
		if len(children) > 1 {
			elseNode := walk(children[1], id)
			n.Children = append(n.Children, &types.ASTNodeInfo{
				Kind:     types.KindElseStmt,
				Location: elseNode.Location,
				Children: []*types.ASTNodeInfo{elseNode},
			})
		}
		return n

	case RawSwitch:
		return walkSingleBody(raw, types.KindSwitchStmt, id)
	case RawFor:
		return walkSingleBody(raw, types.KindForStmt, id)
	case RawWhile:
		return walkSingleBody(raw, types.KindWhileStmt, id)
	case RawDo:
		return walkSingleBody(raw, types.KindDoStmt, id)

	case RawTry:
		n := &types.ASTNodeInfo{
			Kind:        types.KindTryStmt,
			Location:    raw.Location(),
			EndLocation: raw.EndLocation(),
			Text:        raw.Text(),
		}
		children := raw.Children()
		if len(children) > 0 {
			n.Children = append(n.Children, walk(children[0], id))
		}
		for _, handler := range children[1:] {
			walkedHandler := walk(handler, id)
			n.Children = append(n.Children, &types.ASTNodeInfo{
				Kind:     types.KindCatchStmt,
				Location: handler.Location(),
				Children: []*types.ASTNodeInfo{walkedHandler},
			})
		}
		return n

	case RawCallExpr:
		n := &types.ASTNodeInfo{
			Kind:        types.KindCallExpr,
			Name:        raw.CalleeName(),
			Location:    raw.Location(),
			EndLocation: raw.EndLocation(),
			Text:        raw.Text(),
		}
		if id != nil {
			id.Classify(n, raw.ArgLiterals(), raw.StreamedLiteral())
		}
		return n

	default: // RawOther
		return &types.ASTNodeInfo{
			Kind:        types.KindCallExpr,
			Location:    raw.Location(),
			EndLocation: raw.EndLocation(),
			Text:        raw.Text(),
		}
	}
}

func walkSingleBody(raw RawNode, kind types.NodeKind, id *logident.Identifier) *types.ASTNodeInfo {
	n := &types.ASTNodeInfo{
		Kind:        kind,
		Location:    raw.Location(),
		EndLocation: raw.EndLocation(),
		Text:        raw.Text(),
	}
	if children := raw.Children(); len(children) > 0 {
		n.Children = append(n.Children, walk(children[0], id))
	}
	return n
}
