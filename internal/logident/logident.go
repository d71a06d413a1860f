// Package logident is dlogcover's log-call identifier: it builds a
// name→(library, level) map once from configuration and classifies
// call expressions encountered during the AST walk as plain calls or
// recognized log calls. Grounded on the teacher's curated
// name-set pattern in internal/analysis/known_functions.go, generalized
// from a single hardcoded map to a configuration-built one per engine
// instance, built once for O(1) lookup thereafter.
package logident

import (
	"strings"

	"github.com/dlogcover/dlogcover/internal/config"
	"github.com/dlogcover/dlogcover/internal/strutil"
	"github.com/dlogcover/dlogcover/internal/types"
)

type entry struct {
	library types.LogLibrary
	level   types.LogLevel
}

// Identifier holds the O(1) name→(library,level) map built once from
// Config at construction.
type Identifier struct {
	names map[string]entry
}

// New builds an Identifier from cfg.LogFunctions: the name set and
// name→(library,level) map are built once at startup from configuration.
func New(cfg *config.Config) *Identifier {
	id := &Identifier{names: make(map[string]entry)}

	if cfg.LogFunctions.Qt.Enabled {
		for _, fn := range cfg.LogFunctions.Qt.Functions {
			id.names[fn] = entry{types.LibQt, levelFromQtSuffix(fn)}
		}
		for _, fn := range cfg.LogFunctions.Qt.CategoryFunctions {
			id.names[fn] = entry{types.LibQtCategory, levelFromQtSuffix(fn)}
		}
	}

	if cfg.LogFunctions.Custom.Enabled {
		for levelName, fns := range cfg.LogFunctions.Custom.Functions {
			level := parseLevel(levelName)
			for _, fn := range fns {
				// LOG_ERROR and LOG_ERROR_FMT are treated as Fatal by
				// convention: user-declared "error" macros are assumed
				// to precede process termination.
				if fn == "LOG_ERROR" || fn == "LOG_ERROR_FMT" {
					id.names[fn] = entry{types.LibCustom, types.LevelFatal}
					continue
				}
				id.names[fn] = entry{types.LibCustom, level}
			}
		}
	}

	return id
}

func levelFromQtSuffix(name string) types.LogLevel {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "debug"):
		return types.LevelDebug
	case strings.Contains(lower, "info"):
		return types.LevelInfo
	case strings.Contains(lower, "warning") || strings.Contains(lower, "warn"):
		return types.LevelWarning
	case strings.Contains(lower, "critical") || strings.Contains(lower, "error"):
		return types.LevelError
	case strings.Contains(lower, "fatal"):
		return types.LevelFatal
	default:
		return types.LevelUnknown
	}
}

func parseLevel(name string) types.LogLevel {
	switch strings.ToLower(name) {
	case "debug":
		return types.LevelDebug
	case "info":
		return types.LevelInfo
	case "warning", "warn":
		return types.LevelWarning
	case "error":
		return types.LevelError
	case "fatal":
		return types.LevelFatal
	default:
		return types.LevelUnknown
	}
}

// Lookup reports whether callee is a recognized log function and, if
// so, its library and level.
func (id *Identifier) Lookup(callee string) (library types.LogLibrary, level types.LogLevel, ok bool) {
	e, found := id.names[callee]
	if !found {
		return types.LibNone, types.LevelUnknown, false
	}
	return e.library, e.level, true
}

// Classify applies the Log-Call Identifier to a CallExpr node: if the
// callee is recognized, it retags the node LogCallExpr, sets
// HasLogging, and attaches a populated LogCallSite. argLiterals is the
// ordered list of string-literal arguments the caller extracted from
// the call (used for message extraction); streamedLiteral, if non-empty,
// is the last string literal streamed via `<<` onto the call's result.
func (id *Identifier) Classify(n *types.ASTNodeInfo, argLiterals []string, streamedLiteral string) {
	if n == nil || n.Kind != types.KindCallExpr {
		return
	}
	callee := n.Name
	library, level, ok := id.Lookup(callee)
	if !ok {
		return
	}

	n.Kind = types.KindLogCallExpr
	n.HasLogging = true

	message, shape := extractMessage(callee, argLiterals, streamedLiteral)
	n.LogCall = &types.LogCallSite{
		Location:     n.Location,
		FunctionName: callee,
		Library:      library,
		Level:        level,
		Message:      message,
		Shape:        shape,
	}
}

// extractMessage implements this precedence order for a call's logged
// message: (a) a string literal passed positionally, (b) the last literal
// streamed via `<<`, (c) empty. Shape classification: Format if the
// callee name ends in a _FMT/Printf/…f-family suffix, Stream if nothing
// was passed positionally but something was streamed, Function
// otherwise when a single positional string arg was found.
func extractMessage(callee string, argLiterals []string, streamedLiteral string) (string, types.CallShape) {
	if isFormatStyle(callee) {
		if len(argLiterals) > 0 {
			return strutil.Trim(argLiterals[0]), types.ShapeFormat
		}
		return "", types.ShapeFormat
	}
	if len(argLiterals) > 0 {
		return strutil.Trim(argLiterals[0]), types.ShapeFunction
	}
	if streamedLiteral != "" {
		return strutil.Trim(streamedLiteral), types.ShapeStream
	}
	return "", types.ShapeUnknown
}

var formatSuffixes = []string{"_FMT", "Printf", "Infof", "Debugf", "Warnf", "Errorf", "Fatalf", "Panicf"}

func isFormatStyle(callee string) bool {
	for _, suffix := range formatSuffixes {
		if strings.HasSuffix(callee, suffix) {
			return true
		}
	}
	return false
}
