package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/tether-analysis/tether/internal/output"
	"github.com/tether-analysis/tether/pkg/analyzer/volatility"
	"github.com/tether-analysis/tether/pkg/coupling"
)

func volatilityCmd() *cli.Command {
	return &cli.Command{
		Name:      "volatility",
		Aliases:   []string{"vol"},
		Usage:     "Show per-module change volatility mined from git history",
		ArgsUsage: "[path]",
		Action:    runVolatility,
	}
}

func runVolatility(c *cli.Context) error {
	result, err := runPipeline(c)
	if err != nil {
		return err
	}
	if result.Graph.NodeCount() == 0 {
		return printNoModules()
	}

	formatter, err := newFormatter(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer formatter.Close()

	if formatter.Format() == output.FormatJSON {
		return formatter.Output(struct {
			Stats   volatility.Stats               `json:"stats"`
			Modules map[string]coupling.Volatility `json:"modules"`
		}{result.History, result.Volatility})
	}

	w := formatter.Writer()
	if formatter.Colored() {
		color.Cyan("Volatility")
	} else {
		fmt.Fprintln(w, "Volatility")
	}
	fmt.Fprintf(w, "  Files changed: %d\n", result.History.TotalFiles)
	fmt.Fprintf(w, "  Total changes: %d\n", result.History.TotalChanges)
	fmt.Fprintf(w, "  Max per file:  %d\n", result.History.MaxChanges)
	fmt.Fprintf(w, "  Avg per file:  %.1f\n", result.History.AvgChanges)
	fmt.Fprintln(w)

	modules := make([]string, 0, len(result.Volatility))
	for m := range result.Volatility {
		modules = append(modules, m)
	}
	sort.Strings(modules)
	for _, m := range modules {
		fmt.Fprintf(w, "  %-8s %s\n", result.Volatility[m], m)
	}
	return nil
}
