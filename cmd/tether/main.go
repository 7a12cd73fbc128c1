package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/tether-analysis/tether/pkg/coupling"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

func main() {
	app := &cli.App{
		Name:    "tether",
		Usage:   "Module coupling balance analysis",
		Version: version,
		Description: `Tether analyzes a Rust codebase and scores the balance between coupling
strength, module distance and change volatility. It detects global
complexity, cascading change risk, inappropriate intimacy and dependency
cycles, and ranks the modules most worth untangling.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"TETHER_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "text",
				Usage:   "Output format: text, json, markdown",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.IntFlag{
				Name:    "jobs",
				Aliases: []string{"j"},
				Usage:   "Number of parallel workers (default: CPU count)",
			},
			&cli.BoolFlag{
				Name:  "no-git",
				Usage: "Skip version-control history; volatility becomes Unknown",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Disable the extraction cache",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose output",
			},
		},
		Commands: []*cli.Command{
			analyzeCmd(),
			graphCmd(),
			volatilityCmd(),
			hotspotCmd(),
		},
		DefaultCommand: "analyze",
	}

	if err := app.Run(os.Args); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps the error taxonomy to the exit-code contract: 1 for
// configuration and I/O failures, 2 for internal analysis bugs.
func exitCode(err error) int {
	var invariant *coupling.InvariantError
	if errors.As(err, &invariant) {
		fmt.Fprintf(os.Stderr, "internal error: %v\n", err)
		return 2
	}
	var exit cli.ExitCoder
	if errors.As(err, &exit) {
		if exit.ExitCode() != 0 {
			fmt.Fprintln(os.Stderr, err)
		}
		return exit.ExitCode()
	}
	fmt.Fprintln(os.Stderr, err)
	return 1
}
