// Package coverage is dlogcover's coverage calculator: it walks a
// file's node-info forest to compute the four coverage axes, recording
// an uncovered-path entry for every node that misses its axis.
// Grounded on the teacher's internal/analysis/metrics_calculator.go
// per-axis totals/ratios aggregation pattern.
package coverage

import (
	"fmt"

	"github.com/dlogcover/dlogcover/internal/types"
)

// AxisEnables selects which of the four axes to compute, mirroring the
// `analysis.function_coverage` family of config options.
type AxisEnables struct {
	Function  bool
	Branch    bool
	Exception bool
	KeyPath   bool
}

// suggestions is a fixed table indexed by (axis, node kind), giving the
// canned remediation text attached to each uncovered-path record.
var suggestions = map[types.CoverageAxis]map[types.NodeKind]string{
	types.AxisFunction: {
		types.KindFunction: "add entry/exit logging",
		types.KindMethod:   "add entry/exit logging",
	},
	types.AxisBranch: {
		types.KindIfStmt:     "log the condition outcome",
		types.KindElseStmt:   "log the fallback path taken",
		types.KindSwitchStmt: "log the dispatched case",
		types.KindCaseStmt:   "log entry into this case",
	},
	types.AxisException: {
		types.KindTryStmt:   "log entry into the guarded block",
		types.KindCatchStmt: "log the caught exception",
	},
}

func suggestionFor(axis types.CoverageAxis, kind types.NodeKind) string {
	if byKind, ok := suggestions[axis]; ok {
		if s, ok := byKind[kind]; ok {
			return s
		}
	}
	return fmt.Sprintf("add logging to this %s", kind)
}

// KeyPathPlaceholderRatio is the fixed constant reported for the
// key-path axis, an acknowledged placeholder pending a real heuristic
// (see DESIGN.md's Open Questions). It always reports total=covered=0 so it never
// contributes an uncovered-path record while still counting toward the
// per-file axis mean when enabled.
const KeyPathPlaceholderRatio = 1.0

// Compute walks root (one entry per top-level function/method) and
// produces CoverageStats for the enabled axes.
func Compute(root []*types.ASTNodeInfo, file string, enables AxisEnables) types.CoverageStats {
	stats := types.CoverageStats{Axes: make(map[types.CoverageAxis]types.AxisStats)}

	if enables.Function {
		stats.Axes[types.AxisFunction] = types.AxisStats{}
	}
	if enables.Branch {
		stats.Axes[types.AxisBranch] = types.AxisStats{}
	}
	if enables.Exception {
		stats.Axes[types.AxisException] = types.AxisStats{}
	}

	for _, fn := range root {
		walkNode(fn, file, enables, &stats)
	}

	if enables.KeyPath {
		stats.Axes[types.AxisKeyPath] = types.AxisStats{Total: 0, Covered: 0}
	}

	stats.Overall = overallMean(stats.Axes, enables)
	return stats
}

func walkNode(n *types.ASTNodeInfo, file string, enables AxisEnables, stats *types.CoverageStats) {
	if n == nil {
		return
	}

	switch n.Kind {
	case types.KindFunction, types.KindMethod:
		if enables.Function {
			tally(stats, types.AxisFunction, n, file)
		}
	case types.KindIfStmt, types.KindElseStmt, types.KindSwitchStmt, types.KindCaseStmt:
		if enables.Branch {
			tally(stats, types.AxisBranch, n, file)
		}
	case types.KindTryStmt, types.KindCatchStmt:
		if enables.Exception {
			tally(stats, types.AxisException, n, file)
		}
	}

	for _, c := range n.Children {
		walkNode(c, file, enables, stats)
	}
}

func tally(stats *types.CoverageStats, axis types.CoverageAxis, n *types.ASTNodeInfo, file string) {
	a := stats.Axes[axis]
	a.Total++
	if n.HasLogging {
		a.Covered++
	} else {
		loc := n.Location
		loc.File = file
		stats.UncoveredPaths = append(stats.UncoveredPaths, types.UncoveredPath{
			Axis:       axis,
			Kind:       n.Kind,
			Location:   loc,
			Name:       n.Name,
			Text:       n.Text,
			Suggestion: suggestionFor(axis, n.Kind),
		})
	}
	stats.Axes[axis] = a
}

// overallMean is the unweighted mean of the enabled axes' ratios.
func overallMean(axes map[types.CoverageAxis]types.AxisStats, enables AxisEnables) float64 {
	var sum float64
	var n int
	if enables.Function {
		sum += axes[types.AxisFunction].Ratio()
		n++
	}
	if enables.Branch {
		sum += axes[types.AxisBranch].Ratio()
		n++
	}
	if enables.Exception {
		sum += axes[types.AxisException].Ratio()
		n++
	}
	if enables.KeyPath {
		sum += KeyPathPlaceholderRatio
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Aggregate combines per-file CoverageStats into the overall run
// result: an axis-wise sum of covered and total across files, then
// recomputed ratios, then the overall mean of the enabled axes.
func Aggregate(perFile []types.CoverageStats, enables AxisEnables) types.CoverageStats {
	overall := types.CoverageStats{Axes: make(map[types.CoverageAxis]types.AxisStats)}
	for _, fs := range perFile {
		for axis, a := range fs.Axes {
			existing := overall.Axes[axis]
			existing.Total += a.Total
			existing.Covered += a.Covered
			overall.Axes[axis] = existing
		}
		overall.UncoveredPaths = append(overall.UncoveredPaths, fs.UncoveredPaths...)
	}
	overall.Overall = overallMean(overall.Axes, enables)
	return overall
}
