// Package dlogerrors defines dlogcover's typed error taxonomy: each
// stage of the pipeline produces its own concrete error type, so callers
// can distinguish recoverable per-file failures from fatal
// configuration/setup errors with errors.As instead of string matching.
// The Kind constants name those stages; the error types do not carry a
// Kind value.
package dlogerrors

import "fmt"

// Kind classifies an error by the stage that produced it.
type Kind string

const (
	KindConfig     Kind = "config"
	KindOwnership  Kind = "ownership"
	KindCompileDB  Kind = "compile_db"
	KindParse      Kind = "parse"
	KindAnalysis   Kind = "analysis"
	KindPipeline   Kind = "pipeline"
	KindReport     Kind = "report"
	KindGoWorker   Kind = "go_worker"
)

// ConfigError reports a malformed or missing configuration value.
type ConfigError struct {
	Field string
	Msg   string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
	}
	return fmt.Sprintf("config: %s", e.Msg)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// OwnershipError reports that a source file could not be attributed to
// any configured project root at the active strictness level.
type OwnershipError struct {
	Path  string
	Level string
	Err   error
}

func (e *OwnershipError) Error() string {
	return fmt.Sprintf("ownership: %s: no owning root at level %q", e.Path, e.Level)
}

func (e *OwnershipError) Unwrap() error { return e.Err }

// ParseError reports a front-end parse failure for a single file. Parse
// errors are per-file and recoverable: the pipeline records them and
// continues with the remaining files.
type ParseError struct {
	Path string
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse: %s: %s", e.Path, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

// AnalysisError reports a failure while analyzing an already-parsed AST
// (log identification, coverage computation).
type AnalysisError struct {
	Path string
	Msg  string
	Err  error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis: %s: %s", e.Path, e.Msg)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// PipelineError reports a fatal, non-recoverable failure of pipeline
// plumbing itself (queue setup, worker startup), as opposed to a
// per-file ParseError/AnalysisError.
type PipelineError struct {
	Stage string
	Msg   string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline: stage %s: %s", e.Stage, e.Msg)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// GoWorkerError reports a failure communicating with or inside the
// out-of-process Go analyzer worker.
type GoWorkerError struct {
	Path string
	Msg  string
	Err  error
}

func (e *GoWorkerError) Error() string {
	return fmt.Sprintf("go_worker: %s: %s", e.Path, e.Msg)
}

func (e *GoWorkerError) Unwrap() error { return e.Err }

// ReportError reports a failure rendering or writing an output report.
type ReportError struct {
	Format string
	Msg    string
	Err    error
}

func (e *ReportError) Error() string {
	return fmt.Sprintf("report: %s: %s", e.Format, e.Msg)
}

func (e *ReportError) Unwrap() error { return e.Err }

// MultiError aggregates independent errors from concurrent work (e.g.
// per-file parse failures collected across a pipeline run) into one
// error value. Matches the teacher's MultiError shape.
type MultiError struct {
	Errs []error
}

func (m *MultiError) Error() string {
	if len(m.Errs) == 1 {
		return m.Errs[0].Error()
	}
	return fmt.Sprintf("%d errors, first: %s", len(m.Errs), m.Errs[0].Error())
}

// Unwrap exposes the wrapped errors to errors.Is/errors.As via the
// multi-unwrap convention (Go 1.20+).
func (m *MultiError) Unwrap() []error { return m.Errs }

// Add appends err to m, ignoring nil.
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errs = append(m.Errs, err)
	}
}

// Empty reports whether no errors have been added.
func (m *MultiError) Empty() bool { return len(m.Errs) == 0 }

// ErrOrNil returns m if it holds any errors, otherwise nil — so callers
// can `return merr.ErrOrNil()` without an extra branch.
func (m *MultiError) ErrOrNil() error {
	if m.Empty() {
		return nil
	}
	return m
}
