package pipeline

import "github.com/dlogcover/dlogcover/internal/types"

// ParseFunc parses one source file into its top-level function/method
// forest. The pipeline is front-end agnostic — it makes no distinction
// between languages at the stage level — the dispatcher
// wires this to internal/cppfrontend and runs only C++ files through the
// pipeline (Go files take the dispatcher's own goanalyzer path), keeping
// this package free of a tree-sitter / go/ast
// dependency of its own and trivially testable with a stub.
type ParseFunc func(file types.SourceFileInfo) ([]*types.ASTNodeInfo, error)
