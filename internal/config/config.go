// Package config loads and validates dlogcover's frozen run configuration,
// modeled on the teacher's internal/config package: a
// plain struct with sane defaults, a KDL file loader accepting both
// nested and legacy-flat shapes, and environment-variable overrides
// applied after file load.
package config

import (
	"os"
	"path/filepath"

	"github.com/dlogcover/dlogcover/internal/dlogerrors"
)

// AnalysisMode selects which source languages the dispatcher analyzes.
type AnalysisMode string

const (
	ModeCppOnly     AnalysisMode = "cpp_only"
	ModeGoOnly      AnalysisMode = "go_only"
	ModeAutoDetect  AnalysisMode = "auto_detect"
)

// Project holds the project root and build directory.
type Project struct {
	Directory      string
	BuildDirectory string
}

// Scan controls source-file enumeration.
type Scan struct {
	Directories     []string
	FileExtensions  []string
	ExcludePatterns []string
}

// CompileCommands controls the compile-commands.json discovery/generation.
type CompileCommands struct {
	Path         string
	AutoGenerate bool
	CMakeArgs    []string
}

// Output controls report/diagnostic sinks.
type Output struct {
	ReportFile               string
	ReportFormat             string // "text" or "json"; env-only override, see DLOGCOVER_REPORT_FORMAT
	LogFile                  string
	LogLevel                 string
	ShowUncoveredPathDetails bool
}

// QtLogFunctions is the Qt-specific name-set configuration.
type QtLogFunctions struct {
	Enabled           bool
	Functions         []string
	CategoryFunctions []string
}

// CustomLogFunctions is a user-supplied level → function-name-list map.
type CustomLogFunctions struct {
	Enabled   bool
	Functions map[string][]string
}

// LogFunctions groups all C++-side log-identifier name sets.
type LogFunctions struct {
	Qt     QtLogFunctions
	Custom CustomLogFunctions
}

// AutoDetection parameters for analysis.mode == auto_detect.
type AutoDetection struct {
	SampleSize         int
	ConfidenceThreshold float64
}

// Analysis controls which language(s) and which coverage axes run.
type Analysis struct {
	Mode              AnalysisMode
	AutoDetection     AutoDetection
	FunctionCoverage  bool
	BranchCoverage    bool
	ExceptionCoverage bool
	KeyPathCoverage   bool
}

// Performance controls parallelism and caching knobs.
type Performance struct {
	EnableParallelAnalysis bool
	MaxThreads             int // 0 = auto (hardware concurrency)
	EnableASTCache         bool
	MaxCacheSize           int // entries
	EnableIOOptimization   bool
	FileBufferSize         int
	EnableFilePreloading   bool

	// EnableStreamingPipeline routes C++ analysis through the bounded,
	// three-stage parse/decompose/analyze pipeline instead of the
	// dispatcher's direct per-file batch fan-out. Off by default: most
	// projects fit comfortably in memory and the direct path has less
	// scheduling overhead.
	EnableStreamingPipeline    bool
	PipelineParseWorkers       int
	PipelineDecomposeWorkers   int
	PipelineAnalyzeWorkers     int
	PipelinePriorityScheduling bool
}

// GoLibrary is a per-library enable flag plus function-name set, passed
// verbatim to the Go analyzer worker.
type GoLibrary struct {
	Enabled          bool
	Functions        []string
	LoggerFunctions  []string // zap-style: logger.Info/Error/...
	SugaredFunctions []string // zap-style: sugar.Infof/Errorf/...
}

// Go groups the Go-side log-identifier configuration passed to the worker.
type Go struct {
	StandardLog GoLibrary
	Logrus      GoLibrary
	Zap         GoLibrary
	Golib       GoLibrary
}

// Config is the frozen, validated run configuration.
type Config struct {
	Version         string
	Project         Project
	Scan            Scan
	CompileCommands CompileCommands
	Output          Output
	LogFunctions    LogFunctions
	Analysis        Analysis
	Performance     Performance
	Go              Go
}

const supportedVersion = "1.0"

// Default returns a Config populated with dlogcover's built-in defaults.
func Default() *Config {
	return &Config{
		Version: supportedVersion,
		Scan: Scan{
			Directories:     []string{"."},
			FileExtensions:  []string{".cpp", ".cc", ".cxx", ".h", ".hpp", ".go"},
			ExcludePatterns: defaultExcludePatterns(),
		},
		CompileCommands: CompileCommands{
			AutoGenerate: false,
		},
		Output: Output{
			LogLevel: "info",
		},
		LogFunctions: LogFunctions{
			Qt: QtLogFunctions{
				Enabled:           true,
				Functions:         []string{"qDebug", "qInfo", "qWarning", "qCritical", "qFatal"},
				CategoryFunctions: []string{"qCDebug", "qCInfo", "qCWarning", "qCCritical"},
			},
			Custom: CustomLogFunctions{Functions: map[string][]string{}},
		},
		Analysis: Analysis{
			Mode:              ModeAutoDetect,
			AutoDetection:     AutoDetection{SampleSize: 20, ConfidenceThreshold: 0.7},
			FunctionCoverage:  true,
			BranchCoverage:    true,
			ExceptionCoverage: true,
			KeyPathCoverage:   false,
		},
		Performance: Performance{
			EnableParallelAnalysis: true,
			MaxThreads:             0,
			EnableASTCache:         true,
			MaxCacheSize:           10000,
			EnableIOOptimization:   true,
			FileBufferSize:         64 * 1024,
		},
		Go: Go{
			StandardLog: GoLibrary{Enabled: true, Functions: []string{"Print", "Printf", "Println", "Fatal", "Fatalf", "Fatalln", "Panic", "Panicf", "Panicln"}},
			Logrus:      GoLibrary{Enabled: true, Functions: []string{"Debug", "Info", "Warn", "Warning", "Error", "Fatal", "Panic", "Debugf", "Infof", "Warnf", "Errorf", "Fatalf", "Panicf"}},
			Zap:         GoLibrary{Enabled: true, LoggerFunctions: []string{"Debug", "Info", "Warn", "Error", "Fatal", "Panic"}, SugaredFunctions: []string{"Debugf", "Infof", "Warnf", "Errorf", "Fatalf", "Panicf"}},
			Golib:       GoLibrary{Enabled: false},
		},
	}
}

// Load reads the project config (<projectRoot>/.dlogcover.kdl), merges it
// over an optional global config (~/.dlogcover.kdl), applies environment
// variable overrides, validates, and returns the frozen result.
func Load(projectRoot string) (*Config, error) {
	cfg := Default()

	if home, err := os.UserHomeDir(); err == nil {
		globalPath := filepath.Join(home, ".dlogcover.kdl")
		if global, err := loadKDLFile(globalPath, cfg); err == nil && global != nil {
			cfg = global
		}
	}

	projectPath := filepath.Join(projectRoot, ".dlogcover.kdl")
	if merged, err := loadKDLFile(projectPath, cfg); err != nil {
		return nil, err
	} else if merged != nil {
		cfg = merged
	}

	if cfg.Project.Directory == "" {
		abs, err := filepath.Abs(projectRoot)
		if err != nil {
			return nil, &dlogerrors.ConfigError{Field: "project.directory", Msg: err.Error(), Err: err}
		}
		cfg.Project.Directory = abs
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and configuration invariants.
func Validate(cfg *Config) error {
	if cfg.Version != supportedVersion {
		return &dlogerrors.ConfigError{Field: "version", Msg: "unsupported version " + cfg.Version + ", only \"1.0\" is accepted"}
	}
	if cfg.Project.Directory == "" {
		return &dlogerrors.ConfigError{Field: "project.directory", Msg: "must be set"}
	}
	if info, err := os.Stat(cfg.Project.Directory); err != nil || !info.IsDir() {
		return &dlogerrors.ConfigError{Field: "project.directory", Msg: "directory not found: " + cfg.Project.Directory}
	}
	if len(cfg.Scan.FileExtensions) == 0 {
		return &dlogerrors.ConfigError{Field: "scan.file_extensions", Msg: "must be non-empty"}
	}
	switch cfg.Analysis.Mode {
	case ModeCppOnly, ModeGoOnly, ModeAutoDetect:
	default:
		return &dlogerrors.ConfigError{Field: "analysis.mode", Msg: "must be one of cpp_only|go_only|auto_detect"}
	}
	switch cfg.Output.LogLevel {
	case "debug", "info", "warning", "error", "fatal", "":
	default:
		return &dlogerrors.ConfigError{Field: "output.log_level", Msg: "invalid log level " + cfg.Output.LogLevel}
	}
	return nil
}
