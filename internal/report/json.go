package report

import (
	"encoding/json"
	"io"

	"github.com/dlogcover/dlogcover/internal/dlogerrors"
	"github.com/dlogcover/dlogcover/internal/types"
)

// JSONReporter renders PipelineResults as the engine's own JSON wire
// shape (the same encoding/json convention the Go worker bridge uses),
// sorted by path for deterministic output.
type JSONReporter struct{}

type jsonReport struct {
	Overall axisMapJSON           `json:"overall"`
	Files   map[string]fileReport `json:"files"`
}

type fileReport struct {
	Path         string              `json:"path"`
	Language     string              `json:"language"`
	ParseSuccess bool                `json:"parse_success"`
	ParseError   string              `json:"parse_error,omitempty"`
	Coverage     axisMapJSON         `json:"coverage"`
	Uncovered    []uncoveredPathJSON `json:"uncovered_paths,omitempty"`
}

type axisMapJSON struct {
	Overall float64                  `json:"overall"`
	Axes    map[string]axisStatsJSON `json:"axes"`
}

type axisStatsJSON struct {
	Total   int     `json:"total"`
	Covered int     `json:"covered"`
	Ratio   float64 `json:"ratio"`
}

type uncoveredPathJSON struct {
	Axis       string `json:"axis"`
	Kind       string `json:"kind"`
	File       string `json:"file"`
	Line       int    `json:"line"`
	Column     int    `json:"column"`
	Name       string `json:"name"`
	Suggestion string `json:"suggestion"`
}

func toAxisMapJSON(stats types.CoverageStats) axisMapJSON {
	axes := make(map[string]axisStatsJSON, len(stats.Axes))
	for axis, s := range stats.Axes {
		axes[axis.String()] = axisStatsJSON{Total: s.Total, Covered: s.Covered, Ratio: s.Ratio()}
	}
	return axisMapJSON{Overall: stats.Overall, Axes: axes}
}

func toUncoveredJSON(paths []types.UncoveredPath) []uncoveredPathJSON {
	out := make([]uncoveredPathJSON, 0, len(paths))
	for _, p := range paths {
		out = append(out, uncoveredPathJSON{
			Axis:       p.Axis.String(),
			Kind:       p.Kind.String(),
			File:       p.Location.File,
			Line:       p.Location.Line,
			Column:     p.Location.Column,
			Name:       p.Name,
			Suggestion: p.Suggestion,
		})
	}
	return out
}

// Write renders results as indented JSON.
func (r *JSONReporter) Write(w io.Writer, results *types.PipelineResults) error {
	out := jsonReport{
		Overall: toAxisMapJSON(results.Overall),
		Files:   make(map[string]fileReport, len(results.Files)),
	}
	for path, fr := range results.Files {
		out.Files[path] = fileReport{
			Path:         fr.Path,
			Language:     fr.Lang.String(),
			ParseSuccess: fr.ParseSuccess,
			ParseError:   fr.ParseError,
			Coverage:     toAxisMapJSON(fr.Coverage),
			Uncovered:    toUncoveredJSON(fr.Coverage.UncoveredPaths),
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return &dlogerrors.ReportError{Format: "json", Msg: "encoding results", Err: err}
	}
	return nil
}
