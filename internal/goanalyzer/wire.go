// Package goanalyzer is dlogcover's Go analyzer bridge: a
// language-analyzer-contract implementation that delegates to an external
// worker binary (cmd/dlogcover-goworker) over the filesystem, rather than
// linking go/ast into this process directly. This file holds the JSON
// wire types shared by the bridge and the worker binary.
package goanalyzer

// WireGoLibrary mirrors config.GoLibrary — just the fields the worker
// needs to recognize a call as logging.
type WireGoLibrary struct {
	Enabled          bool     `json:"enabled"`
	Functions        []string `json:"functions,omitempty"`
	LoggerFunctions  []string `json:"logger_functions,omitempty"`
	SugaredFunctions []string `json:"sugared_functions,omitempty"`
}

// WireConfig is the subset of Config the worker needs to classify calls.
type WireConfig struct {
	StandardLog WireGoLibrary `json:"standard_log"`
	Slog        WireGoLibrary `json:"slog"`
	Logrus      WireGoLibrary `json:"logrus"`
	Zap         WireGoLibrary `json:"zap"`
	Golib       WireGoLibrary `json:"golib"`
}

// Request is the single-file worker request.
type Request struct {
	FilePath string     `json:"file_path"`
	Config   WireConfig `json:"config"`
}

// BatchRequest is the batch worker request.
type BatchRequest struct {
	Files    []string   `json:"files"`
	Parallel int        `json:"parallel"`
	Config   WireConfig `json:"config"`
}

// LogCall is one identified logging call within a function, per the
// worker response schema.
type LogCall struct {
	FunctionName string `json:"function_name"`
	Library      string `json:"library"` // standard_log|slog|logrus|zap|golib
	Level        string `json:"level"`   // debug|info|warn|error|fatal
	Line         int    `json:"line"`
	Column       int    `json:"column"`
}

// Function is one analyzed function/method, per the worker response
// schema.
type Function struct {
	Name       string    `json:"name"`
	Line       int       `json:"line"`
	Column     int       `json:"column"`
	EndLine    int       `json:"end_line"`
	EndColumn  int       `json:"end_column"`
	HasLogging bool      `json:"has_logging"`
	LogCalls   []LogCall `json:"log_calls"`
}

// Statistics is the worker's optional summary block.
type Statistics struct {
	ProcessedFiles int `json:"processed_files"`
	TotalFunctions int `json:"total_functions"`
	TotalLogCalls  int `json:"total_log_calls"`
}

// Response is the single-file worker response.
type Response struct {
	Success    bool        `json:"success"`
	Error      string      `json:"error,omitempty"`
	FilePath   string      `json:"file_path,omitempty"`
	Functions  []Function  `json:"functions"`
	Statistics *Statistics `json:"statistics,omitempty"`
}

// BatchResponse is the batch worker response.
type BatchResponse struct {
	Results    []Response  `json:"results"`
	Statistics *Statistics `json:"statistics,omitempty"`
}
