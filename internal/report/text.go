package report

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/dlogcover/dlogcover/internal/dlogerrors"
	"github.com/dlogcover/dlogcover/internal/types"
)

var axisOrder = []types.CoverageAxis{types.AxisFunction, types.AxisBranch, types.AxisException, types.AxisKeyPath}

// TextReporter renders a human-readable summary table, modeled on the
// teacher's CLI status output: an overall-coverage table followed by a
// per-file breakdown and, when requested, the uncovered-path listing.
type TextReporter struct {
	ShowUncoveredPaths bool
}

// Write renders results as a tab-aligned text report.
func (r *TextReporter) Write(w io.Writer, results *types.PipelineResults) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "dlogcover coverage report")
	fmt.Fprintln(tw, "axis\ttotal\tcovered\tratio")
	writeAxisRows(tw, results.Overall)
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "file\toverall")
	paths := make([]string, 0, len(results.Files))
	for path := range results.Files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		fr := results.Files[path]
		if !fr.ParseSuccess {
			fmt.Fprintf(tw, "%s\tparse error: %s\n", path, fr.ParseError)
			continue
		}
		fmt.Fprintf(tw, "%s\t%.2f\n", path, fr.Coverage.Overall)
	}

	if r.ShowUncoveredPaths {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "uncovered paths")
		fmt.Fprintln(tw, "file\tline\taxis\tkind\tsuggestion")
		for _, path := range paths {
			for _, u := range results.Files[path].Coverage.UncoveredPaths {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", u.Location.File, u.Location.Line, u.Axis, u.Kind, u.Suggestion)
			}
		}
	}

	if err := tw.Flush(); err != nil {
		return &dlogerrors.ReportError{Format: "text", Msg: "flushing report", Err: err}
	}
	return nil
}

func writeAxisRows(tw *tabwriter.Writer, stats types.CoverageStats) {
	for _, axis := range axisOrder {
		s, ok := stats.Axes[axis]
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.2f\n", axis, s.Total, s.Covered, s.Ratio())
	}
}
