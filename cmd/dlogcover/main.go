// Command dlogcover is dlogcover's CLI entry point, grounded on the
// teacher's cmd/lci/main.go: a urfave/cli/v2 app wiring config load,
// the engine, and output, with subcommands for the analysis run, the
// MCP query surface, and compile-commands generation.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/dlogcover/dlogcover/internal/compiledb"
	"github.com/dlogcover/dlogcover/internal/config"
	"github.com/dlogcover/dlogcover/internal/dlog"
	"github.com/dlogcover/dlogcover/internal/mcpserver"
	"github.com/dlogcover/dlogcover/internal/orchestrator"
	"github.com/dlogcover/dlogcover/internal/report"
)

const version = "0.1.0"

func main() {
	app := &cli.App{
		Name:    "dlogcover",
		Usage:   "Static log-coverage analysis for C/C++ and Go source trees",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Path to .dlogcover.kdl project root", Value: ".", EnvVars: []string{"DLOGCOVER_CONFIG"}},
			&cli.StringFlag{Name: "root", Aliases: []string{"r"}, Usage: "Project root directory (overrides config)"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Report format: text|json"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Report output file (stdout if empty)"},
			&cli.BoolFlag{Name: "uncovered", Usage: "Include uncovered-path details in the text report"},
		},
		Commands: []*cli.Command{
			{
				Name:   "analyze",
				Usage:  "Run one analysis pass and write the coverage report",
				Action: analyzeCommand,
			},
			{
				Name:   "mcp",
				Usage:  "Start the MCP query surface over stdio",
				Action: mcpCommand,
			},
			{
				Name:  "generate-compile-db",
				Usage: "Invoke cmake to produce compile_commands.json",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "build-dir", Usage: "CMake build directory", Value: "build"},
				},
				Action: generateCompileDBCommand,
			},
		},
		Action: analyzeCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "dlogcover:", err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	if ce, ok := err.(*codedError); ok {
		return ce.code
	}
	return orchestrator.ExitCode(err)
}

// codedError lets command Actions return a pre-classified exit code
// (notably ExitReportWriteIO, which orchestrator.ExitCode can't infer
// from a bare write error).
type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

func newOrchestrator(c *cli.Context) (*orchestrator.Orchestrator, error) {
	root := c.String("config")
	if r := c.String("root"); r != "" {
		root = r
	}
	return orchestrator.New(root)
}

func analyzeCommand(c *cli.Context) error {
	orch, err := newOrchestrator(c)
	if err != nil {
		return err
	}
	defer orch.Close()

	ctx, cancel := signalContext()
	defer cancel()

	results, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	format := c.String("format")
	if format == "" {
		format = orch.Config.Output.ReportFormat
	}
	if format == "" {
		format = "text"
	}

	reporter := report.New(format)
	if tr, ok := reporter.(*report.TextReporter); ok {
		tr.ShowUncoveredPaths = c.Bool("uncovered") || orch.Config.Output.ShowUncoveredPathDetails
	}

	out := os.Stdout
	outputPath := c.String("output")
	if outputPath == "" {
		outputPath = orch.Config.Output.ReportFile
	}
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return &codedError{code: orchestrator.ExitReportWriteIO, err: fmt.Errorf("opening report output: %w", err)}
		}
		defer f.Close()
		out = f
	}

	if err := reporter.Write(out, results); err != nil {
		return &codedError{code: orchestrator.ExitReportWriteIO, err: err}
	}

	dlog.Printf(dlog.ComponentCLI, "wrote %s report covering %d files", format, len(results.Files))
	return nil
}

func mcpCommand(c *cli.Context) error {
	orch, err := newOrchestrator(c)
	if err != nil {
		return err
	}
	defer orch.Close()

	ctx, cancel := signalContext()
	defer cancel()

	server := mcpserver.New(orch)
	return server.Start(ctx)
}

func generateCompileDBCommand(c *cli.Context) error {
	root := c.String("config")
	if r := c.String("root"); r != "" {
		root = r
	}
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}

	buildDir := c.String("build-dir")
	path, err := compiledb.Generate(cfg.Project.Directory, buildDir, cfg.CompileCommands.CMakeArgs)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
