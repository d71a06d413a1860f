package pipeline

import (
	"time"

	"github.com/dlogcover/dlogcover/internal/types"
)

// ParsedASTInfo is stage 1's output: a parsed translation unit's function
// forest for one source file.
type ParsedASTInfo struct {
	File      types.SourceFileInfo
	Functions []*types.ASTNodeInfo
	FromCache bool
}

// FunctionTask is stage 2's output: one function ready for analysis,
// carrying its computed complexity/priority.
type FunctionTask struct {
	File       types.SourceFileInfo
	Node       *types.ASTNodeInfo
	Complexity int
	Priority   int
}

// FunctionAnalysisResult is stage 3's output: one function's coverage
// contribution plus timing/complexity metadata. Err is set instead of
// Stats when the function couldn't be analyzed; the worker still
// returns a result rather than crashing so one bad task doesn't take
// down the analyze pool.
type FunctionAnalysisResult struct {
	File       string
	Function   string
	Stats      types.CoverageStats
	Complexity int
	Priority   int
	Duration   time.Duration
	Err        error
}

// dtorBonus and mainBonus are special-member priority bonuses. The
// constructor bonus isn't applied — see priorityOf.
const (
	dtorBonus = 15
	mainBonus = 100
)

var branchLoopKinds = map[types.NodeKind]bool{
	types.KindIfStmt:     true,
	types.KindElseStmt:   true,
	types.KindSwitchStmt: true,
	types.KindCaseStmt:   true,
	types.KindForStmt:    true,
	types.KindWhileStmt:  true,
	types.KindDoStmt:     true,
}

// complexityOf scores a function as 1 + parameter count + a
// traversal-based branch/loop count. Parameter count is a heuristic —
// ASTNodeInfo doesn't model a parsed parameter list, so it's approximated
// from the function's own source slice (comma count inside the
// signature's parens, 0 for an empty list).
func complexityOf(fn *types.ASTNodeInfo) int {
	return 1 + paramCountHeuristic(fn.Text) + countBranchesAndLoops(fn)
}

func countBranchesAndLoops(n *types.ASTNodeInfo) int {
	if n == nil {
		return 0
	}
	count := 0
	if branchLoopKinds[n.Kind] {
		count++
	}
	for _, c := range n.Children {
		count += countBranchesAndLoops(c)
	}
	return count
}

func paramCountHeuristic(text string) int {
	open := -1
	for i, r := range text {
		if r == '(' {
			open = i
			break
		}
	}
	if open < 0 {
		return 0
	}
	depth := 0
	for i := open; i < len(text); i++ {
		switch text[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				inner := text[open+1 : i]
				if len(trimSpace(inner)) == 0 {
					return 0
				}
				return countTopLevelCommas(inner) + 1
			}
		}
	}
	return 0
}

func countTopLevelCommas(s string) int {
	depth := 0
	commas := 0
	for _, r := range s {
		switch r {
		case '(', '<', '[':
			depth++
		case ')', '>', ']':
			depth--
		case ',':
			if depth == 0 {
				commas++
			}
		}
	}
	return commas
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// priorityOf scores a function's scheduling priority from its
// complexity plus a bonus for special members. Constructor
// bonuses require knowing the enclosing class name, which ASTNodeInfo
// doesn't carry, so only the unambiguous destructor (`~Name`) and `main`
// bonuses are applied; see DESIGN.md's Open Questions for this
// simplification.
func priorityOf(fn *types.ASTNodeInfo, complexity int) int {
	priority := complexity
	switch {
	case fn.Name == "main":
		priority += mainBonus
	case len(fn.Name) > 0 && fn.Name[0] == '~':
		priority += dtorBonus
	}
	return priority
}
