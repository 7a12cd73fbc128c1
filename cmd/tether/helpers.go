package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/tether-analysis/tether/internal/cache"
	"github.com/tether-analysis/tether/internal/output"
	"github.com/tether-analysis/tether/pkg/config"
)

// getRoot returns the project root from positional args, defaulting to ".".
func getRoot(c *cli.Context) string {
	if c.Args().Len() > 0 {
		return c.Args().First()
	}
	return "."
}

// loadConfig resolves the run configuration from --config or the root's
// tether.toml, then applies command-line overrides.
func loadConfig(c *cli.Context, root string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadOrDefault(root)
	}
	if err != nil {
		return nil, err
	}

	if c.Bool("no-git") {
		cfg.Analysis.NoGit = true
	}
	if jobs := c.Int("jobs"); jobs > 0 {
		cfg.Analysis.Jobs = jobs
	}
	if c.Bool("no-cache") {
		cfg.Cache.Enabled = false
	}

	for _, warning := range cfg.Warnings {
		color.Yellow("warning: %s", warning)
	}
	return cfg, nil
}

// newFormatter builds the output formatter from the global flags.
func newFormatter(c *cli.Context) (*output.Formatter, error) {
	return output.NewFormatter(output.ParseFormat(c.String("format")), c.String("output"), true)
}

// newCache opens the extraction cache per configuration.
func newCache(cfg *config.Config) *cache.Cache {
	cc, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, cfg.Cache.Enabled)
	if err != nil {
		// A broken cache directory only costs speed.
		cc, _ = cache.New("", 0, false)
	}
	return cc
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
