package main

import (
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/tether-analysis/tether/internal/progress"
	"github.com/tether-analysis/tether/pkg/analyzer/balance"
	"github.com/tether-analysis/tether/pkg/report"
)

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"a"},
		Usage:     "Run the full coupling balance analysis",
		ArgsUsage: "[path]",
		Action:    runAnalyze,
	}
}

func runAnalyze(c *cli.Context) error {
	result, err := runPipeline(c)
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer formatter.Close()

	return formatter.Output(report.Build(result))
}

// runPipeline resolves configuration and executes the analysis. Shared by
// every command that needs a full result.
func runPipeline(c *cli.Context) (*balance.Analysis, error) {
	root := getRoot(c)
	cfg, err := loadConfig(c, root)
	if err != nil {
		return nil, cli.Exit(err.Error(), 1)
	}

	ctx, cancel := signalContext(c.Context)
	defer cancel()

	tracker := progress.NewSpinner("Analyzing...")
	analyzer := balance.New(
		balance.WithConfig(cfg),
		balance.WithCache(newCache(cfg)),
		balance.WithProgress(tracker.Tick),
	)
	result, err := analyzer.AnalyzeProject(ctx, root)
	tracker.Finish()
	if err != nil {
		return nil, err
	}

	if c.Bool("verbose") && len(result.Diagnostics) > 0 {
		color.Yellow("%d files skipped; see diagnostics", len(result.Diagnostics))
	}
	return result, nil
}

// printNoModules reports an empty project consistently across commands.
func printNoModules() error {
	color.Yellow("No source files found")
	return nil
}
