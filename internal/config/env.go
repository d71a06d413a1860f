package config

import (
	"os"
	"strings"
)

// ApplyEnvOverrides applies dlogcover's recognized environment variables
// over cfg, in place. Applied after file load so CLI/file values are the
// baseline and the environment has the final word.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DLOGCOVER_DIRECTORY"); v != "" {
		cfg.Project.Directory = v
	}
	if v := os.Getenv("DLOGCOVER_OUTPUT"); v != "" {
		cfg.Output.ReportFile = v
	}
	if v := os.Getenv("DLOGCOVER_LOG_PATH"); v != "" {
		cfg.Output.LogFile = v
	}
	if v := os.Getenv("DLOGCOVER_LOG_LEVEL"); v != "" {
		cfg.Output.LogLevel = v
	}
	if v := os.Getenv("DLOGCOVER_REPORT_FORMAT"); v != "" {
		// Stored alongside ReportFile's extension convention; the report
		// package derives format from this when set.
		cfg.Output.ReportFormat = v
	}
	if v := os.Getenv("DLOGCOVER_EXCLUDE"); v != "" {
		cfg.Scan.ExcludePatterns = append(cfg.Scan.ExcludePatterns, strings.Split(v, ",")...)
	}
	// DLOGCOVER_CONFIG is consumed by the CLI layer (the --config flag's
	// environment source) to pick the project root whose config file is
	// loaded, before Load is ever called, so it is not applied here as a
	// Config field override.
}
