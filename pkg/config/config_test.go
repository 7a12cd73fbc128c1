package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tether-analysis/tether/pkg/coupling"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 15, cfg.Thresholds.MaxDependencies)
	assert.Equal(t, 20, cfg.Thresholds.MaxDependents)
	assert.Equal(t, 6, cfg.Analysis.GitMonths)
	assert.False(t, cfg.Analysis.NoGit)
	assert.True(t, cfg.Cache.Enabled)
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, "tether.toml", `
[volatility]
high = ["src/pricing/**"]
low = ["src/util/**"]
ignore = ["src/generated.rs"]

[thresholds]
max_dependencies = 10
max_dependents = 30

[analysis]
git_months = 12
no_git = true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/pricing/**"}, cfg.Volatility.High)
	assert.Equal(t, []string{"src/util/**"}, cfg.Volatility.Low)
	assert.Equal(t, 10, cfg.Thresholds.MaxDependencies)
	assert.Equal(t, 30, cfg.Thresholds.MaxDependents)
	assert.Equal(t, 12, cfg.Analysis.GitMonths)
	assert.True(t, cfg.Analysis.NoGit)
	assert.Empty(t, cfg.Warnings)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "tether.yaml", `
thresholds:
  max_dependencies: 7
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Thresholds.MaxDependencies)
	// Unset keys keep their defaults.
	assert.Equal(t, 20, cfg.Thresholds.MaxDependents)
}

func TestLoadUnknownKeysWarn(t *testing.T) {
	path := writeConfig(t, "tether.toml", `
[thresholds]
max_dependencies = 9
typo_key = 1

[mystery]
value = true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Thresholds.MaxDependencies)
	assert.Len(t, cfg.Warnings, 2)
}

func TestLoadMalformed(t *testing.T) {
	path := writeConfig(t, "tether.toml", "[[[broken")
	_, err := Load(path)
	var cfgErr *coupling.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestLoadInvalidValues(t *testing.T) {
	path := writeConfig(t, "tether.toml", `
[thresholds]
max_dependencies = -1
`)
	_, err := Load(path)
	var cfgErr *coupling.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestLoadOrDefault(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOrDefault(dir)
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.Thresholds.MaxDependencies)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "tether.toml"),
		[]byte("[thresholds]\nmax_dependencies = 3\n"), 0o644))
	cfg, err = LoadOrDefault(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Thresholds.MaxDependencies)
}

func TestCouplingThresholds(t *testing.T) {
	cfg := Default()
	th := cfg.CouplingThresholds()
	assert.Equal(t, coupling.Thresholds{MaxDependencies: 15, MaxDependents: 20}, th)
}
