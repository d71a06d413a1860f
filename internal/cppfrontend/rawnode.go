package cppfrontend

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dlogcover/dlogcover/internal/astwalk"
	"github.com/dlogcover/dlogcover/internal/types"
)

// statementNode adapts one tree-sitter-cpp statement node to
// astwalk.RawNode. Kind/callee/literal fields are resolved once at
// construction time in classify, since detecting a streamed log call
// (`qWarning() << "msg";`) requires looking past the wrapping
// expression_statement and binary_expression nodes to the inner call.
type statementNode struct {
	raw             tree_sitter.Node
	content         []byte
	file            string
	kind            astwalk.RawKind
	calleeName      string
	argLiterals     []string
	streamedLiteral string
}

func newStatementNode(raw tree_sitter.Node, content []byte, file string) *statementNode {
	s := &statementNode{raw: raw, content: content, file: file}
	s.classify()
	return s
}

func (s *statementNode) classify() {
	n := unwrapExpressionStatement(s.raw)

	switch n.Kind() {
	case "compound_statement":
		s.kind = astwalk.RawCompound
	case "if_statement":
		s.kind = astwalk.RawIf
	case "switch_statement":
		s.kind = astwalk.RawSwitch
	case "for_statement", "for_range_loop":
		s.kind = astwalk.RawFor
	case "while_statement":
		s.kind = astwalk.RawWhile
	case "do_statement":
		s.kind = astwalk.RawDo
	case "try_statement":
		s.kind = astwalk.RawTry
	case "call_expression":
		s.kind = astwalk.RawCallExpr
		s.calleeName = calleeName(n, s.content)
		s.argLiterals = callArgLiterals(n, s.content)
	case "binary_expression":
		if callee, literal, ok := streamedCall(n, s.content); ok {
			s.kind = astwalk.RawCallExpr
			s.calleeName = callee
			s.streamedLiteral = literal
		} else {
			s.kind = astwalk.RawOther
		}
	default:
		s.kind = astwalk.RawOther
	}
}

func (s *statementNode) Kind() astwalk.RawKind  { return s.kind }
func (s *statementNode) Text() string           { return nodeText(s.raw, s.content) }
func (s *statementNode) CalleeName() string     { return s.calleeName }
func (s *statementNode) ArgLiterals() []string  { return s.argLiterals }
func (s *statementNode) StreamedLiteral() string { return s.streamedLiteral }

func (s *statementNode) Location() types.Location    { return location(s.raw, s.file) }
func (s *statementNode) EndLocation() types.Location { return endLocation(s.raw, s.file) }

func (s *statementNode) Children() []astwalk.RawNode {
	n := unwrapExpressionStatement(s.raw)

	switch s.kind {
	case astwalk.RawCompound:
		var kids []astwalk.RawNode
		count := n.NamedChildCount()
		for i := uint(0); i < count; i++ {
			child := n.NamedChild(i)
			if child == nil {
				continue
			}
			kids = append(kids, newStatementNode(*child, s.content, s.file))
		}
		return kids

	case astwalk.RawIf:
		var kids []astwalk.RawNode
		if conseq := n.ChildByFieldName("consequence"); conseq != nil {
			kids = append(kids, newStatementNode(*conseq, s.content, s.file))
		}
		if alt := n.ChildByFieldName("alternative"); alt != nil {
			if alt.Kind() == "else_clause" && alt.NamedChildCount() > 0 {
				if inner := alt.NamedChild(0); inner != nil {
					alt = inner
				}
			}
			kids = append(kids, newStatementNode(*alt, s.content, s.file))
		}
		return kids

	case astwalk.RawSwitch, astwalk.RawFor, astwalk.RawWhile, astwalk.RawDo:
		if body := n.ChildByFieldName("body"); body != nil {
			return []astwalk.RawNode{newStatementNode(*body, s.content, s.file)}
		}
		return nil

	case astwalk.RawTry:
		var kids []astwalk.RawNode
		if body := n.ChildByFieldName("body"); body != nil {
			kids = append(kids, newStatementNode(*body, s.content, s.file))
		}
		count := n.NamedChildCount()
		for i := uint(0); i < count; i++ {
			handler := n.NamedChild(i)
			if handler == nil || handler.Kind() != "catch_clause" {
				continue
			}
			if hBody := handler.ChildByFieldName("body"); hBody != nil {
				kids = append(kids, newStatementNode(*hBody, s.content, s.file))
			}
		}
		return kids

	default:
		return nil
	}
}

// unwrapExpressionStatement peels the expression_statement wrapper tree-
// sitter-cpp puts around a bare expression (e.g. a call or a `<<` chain)
// so classify can inspect the expression itself.
func unwrapExpressionStatement(n tree_sitter.Node) tree_sitter.Node {
	if n.Kind() != "expression_statement" {
		return n
	}
	if n.NamedChildCount() != 1 {
		return n
	}
	if child := n.NamedChild(0); child != nil {
		return *child
	}
	return n
}

// calleeName resolves a call_expression's callee spelling, unwrapping
// member-access (`obj.method`, `obj->method`) and qualified names
// (`ns::func`) down to the final identifier.
func calleeName(call tree_sitter.Node, content []byte) string {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	switch fn.Kind() {
	case "field_expression":
		if field := fn.ChildByFieldName("field"); field != nil {
			return nodeText(*field, content)
		}
	case "qualified_identifier":
		if name := fn.ChildByFieldName("name"); name != nil {
			return nodeText(*name, content)
		}
	}
	return nodeText(*fn, content)
}

// callArgLiterals returns the positional string-literal arguments of a
// call_expression, used to extract a log call's literal message.
func callArgLiterals(call tree_sitter.Node, content []byte) []string {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return nil
	}
	var out []string
	count := args.NamedChildCount()
	for i := uint(0); i < count; i++ {
		arg := args.NamedChild(i)
		if arg == nil {
			continue
		}
		if arg.Kind() == "string_literal" {
			out = append(out, stringLiteralValue(*arg, content))
		}
	}
	return out
}

// streamedCall detects `call(...) << "literal"` chains (Qt's qWarning()
// << "msg" idiom): a binary_expression with operator "<<" whose left
// side bottoms out at a call_expression, and whose top-level right side
// is the last streamed string literal.
func streamedCall(n tree_sitter.Node, content []byte) (callee, literal string, ok bool) {
	op := n.ChildByFieldName("operator")
	if op == nil || nodeText(*op, content) != "<<" {
		return "", "", false
	}

	right := n.ChildByFieldName("right")
	if right != nil && right.Kind() == "string_literal" {
		literal = stringLiteralValue(*right, content)
	}

	left := n.ChildByFieldName("left")
	for left != nil && left.Kind() == "binary_expression" {
		left = left.ChildByFieldName("left")
	}
	if left == nil || left.Kind() != "call_expression" {
		return "", "", false
	}
	if literal == "" {
		return "", "", false
	}
	return calleeName(*left, content), literal, true
}

// stringLiteralValue strips a C++ string literal's quotes and any
// encoding prefix (L"...", u8"...", u"...", U"...").
func stringLiteralValue(n tree_sitter.Node, content []byte) string {
	text := nodeText(n, content)
	start := strings.IndexByte(text, '"')
	end := strings.LastIndexByte(text, '"')
	if start < 0 || end <= start {
		return ""
	}
	return text[start+1 : end]
}
