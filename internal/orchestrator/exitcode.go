package orchestrator

import (
	"errors"

	"github.com/dlogcover/dlogcover/internal/dlogerrors"
)

// Process exit codes returned by the CLI entry point.
const (
	ExitSuccess           = 0
	ExitConfigError       = 1
	ExitSourceEnumeration = 2
	ExitAnalysisFatal     = 3
	ExitReportWriteIO     = 4
)

// ExitCode maps an error returned by Run (or by a report writer) to the
// orchestrator's exit-code contract. A nil err maps to ExitSuccess.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var configErr *dlogerrors.ConfigError
	if errors.As(err, &configErr) {
		return ExitConfigError
	}

	var sourceErr *SourceCollectionError
	if errors.As(err, &sourceErr) {
		return ExitSourceEnumeration
	}

	var reportErr *dlogerrors.ReportError
	if errors.As(err, &reportErr) {
		return ExitReportWriteIO
	}

	// PipelineError, AnalysisError, GoWorkerError (when surfaced rather
	// than recovered per-file), and any other unclassified failure are
	// treated as a fatal parse/analysis error.
	return ExitAnalysisFatal
}
