// Package volatility maps modules to change-frequency classes mined from
// version-control history, with configuration overrides.
package volatility

import (
	"bufio"
	"context"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	ignore "github.com/sabhiram/go-gitignore"
	"gonum.org/v1/gonum/stat"

	"github.com/tether-analysis/tether/pkg/coupling"
)

// logBufferSize is the read buffer for the streamed git log.
const logBufferSize = 64 * 1024

const sourceExt = ".rs"

// Oracle classifies module volatility. History is mined once per run; an
// unavailable repository degrades every module to Unknown and the run
// continues.
type Oracle struct {
	months       int
	disabled     bool
	overrideHigh *ignore.GitIgnore
	overrideLow  *ignore.GitIgnore

	available   bool
	fileChanges map[string]int
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithMonths sets the history window in months.
func WithMonths(months int) Option {
	return func(o *Oracle) {
		if months > 0 {
			o.months = months
		}
	}
}

// WithOverrides installs glob patterns that force High or Low classification
// regardless of history.
func WithOverrides(high, low []string) Option {
	return func(o *Oracle) {
		if len(high) > 0 {
			o.overrideHigh = ignore.CompileIgnoreLines(high...)
		}
		if len(low) > 0 {
			o.overrideLow = ignore.CompileIgnoreLines(low...)
		}
	}
}

// WithDisabled turns history mining off; every module without an override
// classifies as Unknown.
func WithDisabled(disabled bool) Option {
	return func(o *Oracle) {
		o.disabled = disabled
	}
}

// New creates an oracle with a six-month default window.
func New(opts ...Option) *Oracle {
	o := &Oracle{
		months:      6,
		fileChanges: make(map[string]int),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Analyze mines the repository history. Errors degrade to Unknown rather
// than failing the run, so Analyze never returns one.
func (o *Oracle) Analyze(ctx context.Context, repoPath string) {
	if o.disabled {
		return
	}
	if o.analyzeNative(ctx, repoPath) {
		o.available = true
		return
	}
	if o.analyzeGoGit(ctx, repoPath) {
		o.available = true
	}
}

// analyzeNative streams `git log --name-only` filtered to source files at
// the git level. The subprocess is scoped to this call and terminated on all
// paths.
func (o *Oracle) analyzeNative(ctx context.Context, repoPath string) bool {
	args := []string{
		"log",
		"--pretty=format:",
		"--name-only",
		"--diff-filter=AMRC",
		"--since=" + sinceArg(o.months),
		"--",
		"*" + sourceExt,
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = repoPath

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return false
	}
	if err := cmd.Start(); err != nil {
		return false
	}

	// Counts land in a local map so a failed stream never leaves partial
	// results behind for the fallback to double-count.
	counts := make(map[string]int)
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, logBufferSize), logBufferSize)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && strings.HasSuffix(line, sourceExt) {
			counts[line]++
		}
	}

	if err := cmd.Wait(); err != nil {
		return false
	}
	if scanner.Err() != nil {
		return false
	}
	for k, v := range counts {
		o.fileChanges[k] += v
	}
	return true
}

func sinceArg(months int) string {
	// git accepts relative dates; an absolute date keeps the subprocess
	// behavior independent of locale parsing.
	return time.Now().AddDate(0, -months, 0).Format("2006-01-02")
}

// analyzeGoGit is the fallback when no git binary is on PATH.
func (o *Oracle) analyzeGoGit(ctx context.Context, repoPath string) bool {
	repo, err := git.PlainOpenWithOptions(repoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return false
	}

	since := time.Now().AddDate(0, -o.months, 0)
	iter, err := repo.Log(&git.LogOptions{Since: &since})
	if err != nil {
		return false
	}
	defer iter.Close()

	err = iter.ForEach(func(c *object.Commit) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		stats, err := c.Stats()
		if err != nil {
			return nil
		}
		for _, s := range stats {
			if strings.HasSuffix(s.Name, sourceExt) {
				o.fileChanges[s.Name]++
			}
		}
		return nil
	})
	return err == nil
}

// ChangeCount returns the mined commit count for a repository-relative file.
func (o *Oracle) ChangeCount(file string) int {
	return o.fileChanges[file]
}

// Available reports whether history was mined.
func (o *Oracle) Available() bool {
	return o.available
}

// Classify maps each module (by path string) to a volatility class. files
// holds the module's repository-relative source files. Thresholds are
// percentiles over the per-module commit sums: High needs the 75th
// percentile and at least three commits, Medium the 50th.
func (o *Oracle) Classify(modules map[string][]string) map[string]coupling.Volatility {
	sums := make(map[string]int, len(modules))
	counts := make([]float64, 0, len(modules))
	for m, files := range modules {
		n := 0
		for _, f := range files {
			n += o.fileChanges[normalize(f)]
		}
		sums[m] = n
		counts = append(counts, float64(n))
	}
	sort.Float64s(counts)

	var p50, p75 float64
	if len(counts) > 0 {
		p50 = stat.Quantile(0.50, stat.Empirical, counts, nil)
		p75 = stat.Quantile(0.75, stat.Empirical, counts, nil)
	}

	out := make(map[string]coupling.Volatility, len(modules))
	for m, files := range modules {
		if v, ok := o.override(m, files); ok {
			out[m] = v
			continue
		}
		if !o.available {
			out[m] = coupling.VolatilityUnknown
			continue
		}
		n := float64(sums[m])
		switch {
		case n >= p75 && sums[m] >= 3:
			out[m] = coupling.VolatilityHigh
		case n >= p50 && sums[m] > 0:
			out[m] = coupling.VolatilityMedium
		default:
			out[m] = coupling.VolatilityLow
		}
	}
	return out
}

// override checks the configured glob patterns against the module path and
// its files. High wins over Low when both match.
func (o *Oracle) override(module string, files []string) (coupling.Volatility, bool) {
	matches := func(g *ignore.GitIgnore) bool {
		if g == nil {
			return false
		}
		if g.MatchesPath(moduleAsPath(module)) {
			return true
		}
		for _, f := range files {
			if g.MatchesPath(normalize(f)) {
				return true
			}
		}
		return false
	}
	if matches(o.overrideHigh) {
		return coupling.VolatilityHigh, true
	}
	if matches(o.overrideLow) {
		return coupling.VolatilityLow, true
	}
	return "", false
}

func normalize(path string) string {
	return strings.TrimPrefix(strings.ReplaceAll(path, "\\", "/"), "./")
}

// moduleAsPath renders "crate::sub::leaf" as "crate/sub/leaf" so globs
// written for file trees also match module paths.
func moduleAsPath(module string) string {
	return strings.ReplaceAll(module, "::", "/")
}
