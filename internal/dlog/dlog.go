// Package dlog is dlogcover's internal debug logger. It is intentionally
// not a structured/leveled logging framework: analysis runs are
// single-shot CLI invocations, and the teacher's own debug logger (which
// this package generalizes) is a plain mutex-guarded writer with an
// enable flag and a handful of component-tagged helpers.
package dlog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Component tags which subsystem emitted a log line.
type Component string

const (
	ComponentConfig     Component = "config"
	ComponentCompiledb  Component = "compiledb"
	ComponentAstCache   Component = "astcache"
	ComponentOwnership  Component = "ownership"
	ComponentCppFront   Component = "cppfrontend"
	ComponentGoAnalyzer Component = "goanalyzer"
	ComponentLogIdent   Component = "logident"
	ComponentAstWalk    Component = "astwalk"
	ComponentCoverage   Component = "coverage"
	ComponentDispatcher Component = "dispatcher"
	ComponentPipeline   Component = "pipeline"
	ComponentCollector  Component = "sourcecollector"
	ComponentOrch       Component = "orchestrator"
	ComponentReport     Component = "report"
	ComponentMCP        Component = "mcpserver"
	ComponentCLI        Component = "cli"
)

var (
	enabled     bool
	enabledMu   sync.RWMutex
	output      io.Writer = os.Stderr
	outputMu    sync.Mutex
	logFile     *os.File
	logFileMu   sync.Mutex
)

// Enable turns debug output on or off. Mirrors the teacher's EnableDebug;
// output is off until a caller passes true.
func Enable(v bool) {
	enabledMu.Lock()
	defer enabledMu.Unlock()
	enabled = v
}

// IsEnabled reports whether debug output is currently turned on.
func IsEnabled() bool {
	enabledMu.RLock()
	defer enabledMu.RUnlock()
	return enabled
}

// SetOutput redirects debug output; tests use this to capture lines.
func SetOutput(w io.Writer) {
	outputMu.Lock()
	defer outputMu.Unlock()
	output = w
}

// InitLogFile opens path for append and tees debug output to it in
// addition to the configured writer. Returns an error if the file cannot
// be opened.
func InitLogFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("dlog: open log file: %w", err)
	}
	logFileMu.Lock()
	logFile = f
	logFileMu.Unlock()
	return nil
}

// CloseLogFile closes any file opened by InitLogFile, if present.
func CloseLogFile() error {
	logFileMu.Lock()
	defer logFileMu.Unlock()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

func write(c Component, format string, args ...any) {
	if !IsEnabled() {
		return
	}
	line := fmt.Sprintf("[%s] [%s] %s\n", time.Now().Format(time.RFC3339Nano), c, fmt.Sprintf(format, args...))
	outputMu.Lock()
	io.WriteString(output, line)
	outputMu.Unlock()

	logFileMu.Lock()
	if logFile != nil {
		io.WriteString(logFile, line)
	}
	logFileMu.Unlock()
}

// Printf logs a formatted debug line tagged with the given component.
func Printf(c Component, format string, args ...any) {
	write(c, format, args...)
}

// Config logs a config-subsystem debug line.
func Config(format string, args ...any) { write(ComponentConfig, format, args...) }

// Pipeline logs a pipeline-subsystem debug line.
func Pipeline(format string, args ...any) { write(ComponentPipeline, format, args...) }

// Coverage logs a coverage-subsystem debug line.
func Coverage(format string, args ...any) { write(ComponentCoverage, format, args...) }

// Fatal logs unconditionally (regardless of the enabled flag) and exits
// the process with status 1. Reserved for unrecoverable startup errors,
// matching the teacher's FatalAndExit.
func Fatal(c Component, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(os.Stderr, "[%s] FATAL: %s\n", c, msg)
	os.Exit(1)
}
