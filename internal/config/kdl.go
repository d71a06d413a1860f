package config

import (
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	"github.com/dlogcover/dlogcover/internal/dlogerrors"
)

// loadKDLFile reads path, merges its contents over base, and returns the
// merged config. Returns (nil, nil) if path does not exist — the caller
// keeps using base unchanged, matching the teacher's "no config found"
// convention.
func loadKDLFile(path string, base *Config) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &dlogerrors.ConfigError{Field: "", Msg: "read " + path, Err: err}
	}

	doc, err := kdl.Parse(strings.NewReader(string(content)))
	if err != nil {
		return nil, &dlogerrors.ConfigError{Field: "", Msg: "parse " + path, Err: err}
	}

	merged := *base
	projectDir := filepath.Dir(path)

	for _, n := range doc.Nodes {
		name := nodeName(n)
		switch name {
		// Nested shape: project { directory "x"; build_directory "y" }
		case "project":
			for _, cn := range n.Children {
				assignString(cn, "directory", func(v string) { merged.Project.Directory = resolveRelative(projectDir, v) })
				assignString(cn, "build_directory", func(v string) { merged.Project.BuildDirectory = resolveRelative(projectDir, v) })
			}
		// Flat legacy shape: directory "x" at document root.
		case "directory":
			if v, ok := firstStringArg(n); ok {
				merged.Project.Directory = resolveRelative(projectDir, v)
			}
		case "build_directory":
			if v, ok := firstStringArg(n); ok {
				merged.Project.BuildDirectory = resolveRelative(projectDir, v)
			}
		case "scan":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "directories":
					merged.Scan.Directories = collectStrings(cn)
				case "file_extensions":
					merged.Scan.FileExtensions = collectStrings(cn)
				case "exclude_patterns":
					merged.Scan.ExcludePatterns = collectStrings(cn)
				}
			}
		case "compile_commands":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "path":
					if v, ok := firstStringArg(cn); ok {
						merged.CompileCommands.Path = resolveRelative(projectDir, v)
					}
				case "auto_generate":
					if b, ok := firstBoolArg(cn); ok {
						merged.CompileCommands.AutoGenerate = b
					}
				case "cmake_args":
					merged.CompileCommands.CMakeArgs = collectStrings(cn)
				}
			}
		case "output":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "report_file":
					if v, ok := firstStringArg(cn); ok {
						merged.Output.ReportFile = v
					}
				case "log_file":
					if v, ok := firstStringArg(cn); ok {
						merged.Output.LogFile = v
					}
				case "log_level":
					if v, ok := firstStringArg(cn); ok {
						merged.Output.LogLevel = v
					}
				case "show_uncovered_paths_details":
					if b, ok := firstBoolArg(cn); ok {
						merged.Output.ShowUncoveredPathDetails = b
					}
				}
			}
		case "log_functions":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "qt":
					parseQt(cn, &merged.LogFunctions.Qt)
				case "custom":
					parseCustom(cn, &merged.LogFunctions.Custom)
				}
			}
		case "analysis":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "mode":
					if v, ok := firstStringArg(cn); ok {
						merged.Analysis.Mode = AnalysisMode(v)
					}
				case "auto_detection":
					for _, an := range cn.Children {
						switch nodeName(an) {
						case "sample_size":
							if v, ok := firstIntArg(an); ok {
								merged.Analysis.AutoDetection.SampleSize = v
							}
						case "confidence_threshold":
							if v, ok := firstFloatArg(an); ok {
								merged.Analysis.AutoDetection.ConfidenceThreshold = v
							}
						}
					}
				case "function_coverage":
					if b, ok := firstBoolArg(cn); ok {
						merged.Analysis.FunctionCoverage = b
					}
				case "branch_coverage":
					if b, ok := firstBoolArg(cn); ok {
						merged.Analysis.BranchCoverage = b
					}
				case "exception_coverage":
					if b, ok := firstBoolArg(cn); ok {
						merged.Analysis.ExceptionCoverage = b
					}
				case "key_path_coverage":
					if b, ok := firstBoolArg(cn); ok {
						merged.Analysis.KeyPathCoverage = b
					}
				}
			}
		case "performance":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "enable_parallel_analysis":
					if b, ok := firstBoolArg(cn); ok {
						merged.Performance.EnableParallelAnalysis = b
					}
				case "max_threads":
					if v, ok := firstIntArg(cn); ok {
						merged.Performance.MaxThreads = v
					}
				case "enable_ast_cache":
					if b, ok := firstBoolArg(cn); ok {
						merged.Performance.EnableASTCache = b
					}
				case "max_cache_size":
					if v, ok := firstIntArg(cn); ok {
						merged.Performance.MaxCacheSize = v
					}
				case "enable_io_optimization":
					if b, ok := firstBoolArg(cn); ok {
						merged.Performance.EnableIOOptimization = b
					}
				case "file_buffer_size":
					if v, ok := firstIntArg(cn); ok {
						merged.Performance.FileBufferSize = v
					}
				case "enable_file_preloading":
					if b, ok := firstBoolArg(cn); ok {
						merged.Performance.EnableFilePreloading = b
					}
				case "enable_streaming_pipeline":
					if b, ok := firstBoolArg(cn); ok {
						merged.Performance.EnableStreamingPipeline = b
					}
				case "pipeline_parse_workers":
					if v, ok := firstIntArg(cn); ok {
						merged.Performance.PipelineParseWorkers = v
					}
				case "pipeline_decompose_workers":
					if v, ok := firstIntArg(cn); ok {
						merged.Performance.PipelineDecomposeWorkers = v
					}
				case "pipeline_analyze_workers":
					if v, ok := firstIntArg(cn); ok {
						merged.Performance.PipelineAnalyzeWorkers = v
					}
				case "pipeline_priority_scheduling":
					if b, ok := firstBoolArg(cn); ok {
						merged.Performance.PipelinePriorityScheduling = b
					}
				}
			}
		case "go":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "standard_log":
					parseGoLib(cn, &merged.Go.StandardLog, false)
				case "logrus":
					parseGoLib(cn, &merged.Go.Logrus, false)
				case "zap":
					parseGoLib(cn, &merged.Go.Zap, true)
				case "golib":
					parseGoLib(cn, &merged.Go.Golib, false)
				}
			}
		}
	}

	return &merged, nil
}

func parseQt(n *document.Node, qt *QtLogFunctions) {
	for _, cn := range n.Children {
		switch nodeName(cn) {
		case "enabled":
			if b, ok := firstBoolArg(cn); ok {
				qt.Enabled = b
			}
		case "functions":
			qt.Functions = collectStrings(cn)
		case "category_functions":
			qt.CategoryFunctions = collectStrings(cn)
		}
	}
}

func parseCustom(n *document.Node, c *CustomLogFunctions) {
	if c.Functions == nil {
		c.Functions = map[string][]string{}
	}
	for _, cn := range n.Children {
		switch nodeName(cn) {
		case "enabled":
			if b, ok := firstBoolArg(cn); ok {
				c.Enabled = b
			}
		case "functions":
			for _, level := range cn.Children {
				c.Functions[nodeName(level)] = collectStrings(level)
			}
		}
	}
}

func parseGoLib(n *document.Node, lib *GoLibrary, zapShape bool) {
	for _, cn := range n.Children {
		switch nodeName(cn) {
		case "enabled":
			if b, ok := firstBoolArg(cn); ok {
				lib.Enabled = b
			}
		case "functions":
			lib.Functions = collectStrings(cn)
		case "logger_functions":
			lib.LoggerFunctions = collectStrings(cn)
		case "sugared_functions":
			lib.SugaredFunctions = collectStrings(cn)
		}
	}
}

func resolveRelative(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(baseDir, p))
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstFloatArg(n *document.Node) (float64, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func assignString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}

// collectStrings gathers string values either from a node's inline
// arguments (`exclude_patterns "a" "b"`) or from block-style children
// (`exclude_patterns { "a"; "b" }`), matching the teacher's dual
// inline/block KDL convention.
func collectStrings(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(n.Children) > 0 {
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}
