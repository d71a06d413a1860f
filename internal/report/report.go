// Package report supplies dlogcover's reporter collaborator: the
// orchestrator hands its finished PipelineResults to a Reporter rather
// than rendering output itself. Supplemented from the original implementation's
// src/reporter/{reporter,json_reporter_strategy,text_reporter_strategy}.cpp
// (two concrete strategies behind one interface) so the repo has a real,
// runnable output path end to end. Grounded on the teacher's CLI status
// output for the text table shape.
package report

import (
	"io"

	"github.com/dlogcover/dlogcover/internal/types"
)

// Reporter renders a PipelineResults to w.
type Reporter interface {
	Write(w io.Writer, results *types.PipelineResults) error
}

// New returns the Reporter for format ("text" or "json"), matching the
// output.report_format config option. Unrecognized formats fall back to
// TextReporter.
func New(format string) Reporter {
	if format == "json" {
		return &JSONReporter{}
	}
	return &TextReporter{}
}
