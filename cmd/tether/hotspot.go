package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/tether-analysis/tether/internal/output"
	"github.com/tether-analysis/tether/pkg/coupling"
)

func hotspotCmd() *cli.Command {
	return &cli.Command{
		Name:      "hotspot",
		Aliases:   []string{"hs"},
		Usage:     "Rank modules by weighted issue severity",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "top",
				Aliases: []string{"n"},
				Value:   10,
				Usage:   "Number of modules to show",
			},
		},
		Action: runHotspot,
	}
}

func runHotspot(c *cli.Context) error {
	result, err := runPipeline(c)
	if err != nil {
		return err
	}
	if result.Graph.NodeCount() == 0 {
		return printNoModules()
	}

	top := c.Int("top")
	hotspots := result.Hotspots
	if top > 0 && len(hotspots) > top {
		hotspots = hotspots[:top]
	}

	formatter, err := newFormatter(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer formatter.Close()

	if formatter.Format() == output.FormatJSON {
		return formatter.Output(struct {
			Hotspots []coupling.Hotspot `json:"hotspots"`
		}{hotspots})
	}

	w := formatter.Writer()
	if formatter.Colored() {
		color.Cyan("Hotspots")
	} else {
		fmt.Fprintln(w, "Hotspots")
	}
	for i, h := range hotspots {
		marker := " "
		if h.InCycle {
			marker = "∞"
		}
		fmt.Fprintf(w, "  %2d. %-40s %6.0f %s (%d issues, %d couplings)\n",
			i+1, h.Module, h.Score, marker, h.Issues, h.Couplings)
	}
	return nil
}
