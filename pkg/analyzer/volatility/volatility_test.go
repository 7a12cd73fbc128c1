package volatility

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tether-analysis/tether/pkg/coupling"
)

// seeded returns an oracle with injected change counts, as if mined.
func seeded(changes map[string]int, opts ...Option) *Oracle {
	o := New(opts...)
	o.available = true
	for k, v := range changes {
		o.fileChanges[k] = v
	}
	return o
}

func TestClassifyPercentiles(t *testing.T) {
	o := seeded(map[string]int{
		"src/stable.rs":   0,
		"src/calm.rs":     1,
		"src/moderate.rs": 4,
		"src/busy.rs":     20,
	})

	got := o.Classify(map[string][]string{
		"app::stable":   {"src/stable.rs"},
		"app::calm":     {"src/calm.rs"},
		"app::moderate": {"src/moderate.rs"},
		"app::busy":     {"src/busy.rs"},
	})

	assert.Equal(t, coupling.VolatilityLow, got["app::stable"])
	assert.Equal(t, coupling.VolatilityHigh, got["app::busy"])
	// Intermediate modules never classify higher than the busiest one.
	assert.NotEqual(t, coupling.VolatilityHigh, got["app::calm"])
}

func TestClassifyHighNeedsThreeCommits(t *testing.T) {
	o := seeded(map[string]int{
		"src/a.rs": 1,
		"src/b.rs": 2,
	})
	got := o.Classify(map[string][]string{
		"app::a": {"src/a.rs"},
		"app::b": {"src/b.rs"},
	})
	// b sits at the top percentile but below the absolute floor of 3.
	assert.NotEqual(t, coupling.VolatilityHigh, got["app::b"])
}

func TestClassifyUnavailableIsUnknown(t *testing.T) {
	o := New()
	got := o.Classify(map[string][]string{
		"app::a": {"src/a.rs"},
	})
	assert.Equal(t, coupling.VolatilityUnknown, got["app::a"])
}

func TestOverridesTakePrecedence(t *testing.T) {
	o := seeded(map[string]int{"src/pricing.rs": 0},
		WithOverrides([]string{"src/pricing*"}, []string{"src/legacy/**"}))

	got := o.Classify(map[string][]string{
		"app::pricing": {"src/pricing.rs"},
		"app::legacy":  {"src/legacy/old.rs"},
	})
	assert.Equal(t, coupling.VolatilityHigh, got["app::pricing"])
	assert.Equal(t, coupling.VolatilityLow, got["app::legacy"])
}

func TestOverridesMatchModulePath(t *testing.T) {
	o := New(WithOverrides([]string{"app/pricing"}, nil), WithDisabled(true))
	got := o.Classify(map[string][]string{
		"app::pricing": nil,
		"app::other":   nil,
	})
	assert.Equal(t, coupling.VolatilityHigh, got["app::pricing"])
	assert.Equal(t, coupling.VolatilityUnknown, got["app::other"])
}

func TestDisabledSkipsMining(t *testing.T) {
	o := New(WithDisabled(true))
	o.Analyze(context.Background(), t.TempDir())
	assert.False(t, o.Available())
}

func TestAnalyzeNonRepoDegrades(t *testing.T) {
	o := New()
	o.Analyze(context.Background(), t.TempDir())
	assert.False(t, o.Available())

	got := o.Classify(map[string][]string{"app": {"src/lib.rs"}})
	assert.Equal(t, coupling.VolatilityUnknown, got["app"])
}

func TestStats(t *testing.T) {
	o := seeded(map[string]int{
		"a.rs": 1,
		"b.rs": 5,
		"c.rs": 15,
	})
	s := o.Stats()
	assert.Equal(t, 3, s.TotalFiles)
	assert.Equal(t, 21, s.TotalChanges)
	assert.Equal(t, 15, s.MaxChanges)
	assert.Equal(t, 1, s.LowCount)
	assert.Equal(t, 1, s.MediumCount)
	assert.Equal(t, 1, s.HighCount)
	assert.InDelta(t, 7.0, s.AvgChanges, 0.001)
}

// TestAnalyzeNativeGit exercises the streaming git path against a real
// repository when a git binary is available.
func TestAnalyzeNativeGit(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=t", "GIT_AUTHOR_EMAIL=t@example.com",
			"GIT_COMMITTER_NAME=t", "GIT_COMMITTER_EMAIL=t@example.com")
		require.NoError(t, cmd.Run(), "git %v", args)
	}
	run("init", "-q")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.rs"), []byte("fn a() {}\n"), 0o644))
	run("add", ".")
	run("commit", "-q", "-m", "one")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.rs"), []byte("fn a() {}\nfn b() {}\n"), 0o644))
	run("commit", "-q", "-am", "two")

	o := New()
	o.Analyze(context.Background(), dir)
	require.True(t, o.Available())
	assert.Equal(t, 2, o.ChangeCount("lib.rs"))
}
