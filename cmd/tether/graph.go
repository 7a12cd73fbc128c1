package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/tether-analysis/tether/internal/output"
	"github.com/tether-analysis/tether/pkg/report"
)

func graphCmd() *cli.Command {
	return &cli.Command{
		Name:      "graph",
		Aliases:   []string{"dag"},
		Usage:     "Emit the module coupling graph (Mermaid or JSON)",
		ArgsUsage: "[path]",
		Action:    runGraph,
	}
}

func runGraph(c *cli.Context) error {
	result, err := runPipeline(c)
	if err != nil {
		return err
	}
	if result.Graph.NodeCount() == 0 {
		return printNoModules()
	}

	rpt := report.Build(result)

	formatter, err := newFormatter(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer formatter.Close()

	if formatter.Format() == output.FormatJSON {
		return formatter.Output(struct {
			Nodes []report.Node `json:"nodes"`
			Edges []report.Edge `json:"edges"`
		}{rpt.Nodes, rpt.Edges})
	}

	w := formatter.Writer()
	fmt.Fprintln(w, "```mermaid")
	fmt.Fprint(w, rpt.ToMermaid())
	fmt.Fprintln(w, "```")
	return nil
}
