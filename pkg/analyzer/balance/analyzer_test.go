package balance

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tether-analysis/tether/pkg/config"
	"github.com/tether-analysis/tether/pkg/coupling"
)

// writeProject materializes a file tree under a temp dir.
func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for path, content := range files {
		full := filepath.Join(root, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func noGitConfig() *config.Config {
	cfg := config.Default()
	cfg.Analysis.NoGit = true
	cfg.Cache.Enabled = false
	return cfg
}

func analyze(t *testing.T, root string, cfg *config.Config) *Analysis {
	t.Helper()
	a := New(WithConfig(cfg))
	result, err := a.AnalyzeProject(context.Background(), root)
	require.NoError(t, err)
	return result
}

func TestAnalyzeMissingRoot(t *testing.T) {
	a := New(WithConfig(noGitConfig()))
	_, err := a.AnalyzeProject(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	var ioErr *coupling.IoError
	assert.ErrorAs(t, err, &ioErr)
}

func TestAnalyzeMalformedManifest(t *testing.T) {
	root := writeProject(t, map[string]string{
		"Cargo.toml": "[package\nname = broken",
	})
	a := New(WithConfig(noGitConfig()))
	_, err := a.AnalyzeProject(context.Background(), root)
	var wsErr *coupling.WorkspaceError
	require.ErrorAs(t, err, &wsErr)
}

func TestAnalyzeSameModuleCall(t *testing.T) {
	root := writeProject(t, map[string]string{
		"Cargo.toml":     "[package]\nname = \"pkg\"\n",
		"src/svc/a.rs":   "pub fn entry() { helper(); }\n",
		"src/svc/b.rs":   "pub fn helper() {}\n",
		"src/lib.rs":     "pub mod svc;\n",
		"src/svc/mod.rs": "mod a;\nmod b;\n",
	})
	result := analyze(t, root, noGitConfig())

	// helper() is a bare call inside svc files; both files map to child
	// modules of pkg::svc, so the edge stays within the svc subtree.
	var internalEdges int
	g := result.Graph
	for _, id := range g.SortedEdges() {
		e := g.Edge(id)
		if g.IsInternalEdge(e) {
			internalEdges++
			assert.Equal(t, coupling.StrengthFunctional, e.Strength)
			assert.Equal(t, coupling.DistanceSameModule, e.Distance)
		}
	}
	require.NotZero(t, internalEdges, "expected at least one internal edge")
	assert.Empty(t, result.Issues)
}

func TestAnalyzeCascadingChangeRisk(t *testing.T) {
	cfg := noGitConfig()
	cfg.Volatility.High = []string{"src/pricing*"}

	root := writeProject(t, map[string]string{
		"Cargo.toml":     "[package]\nname = \"appA\"\n",
		"src/lib.rs":     "pub mod ui;\npub mod pricing;\n",
		"src/ui.rs":      "pub fn render() { crate::pricing::quote(); }\n",
		"src/pricing.rs": "pub fn quote() {}\n",
	})
	result := analyze(t, root, cfg)

	found := false
	for _, is := range result.Issues {
		if is.Type == coupling.IssueCascadingChangeRisk {
			found = true
			assert.Equal(t, coupling.SeverityCritical, is.Severity)
			assert.Equal(t, "appA::ui", is.Module)
			assert.Equal(t, "appA::pricing", is.Target)
		}
	}
	assert.True(t, found, "expected CascadingChangeRisk, got %+v", result.Issues)
	assert.Equal(t, coupling.HealthCritical, result.Health["appA::ui"])
}

func TestAnalyzeCycle(t *testing.T) {
	root := writeProject(t, map[string]string{
		"Cargo.toml": "[package]\nname = \"app\"\n",
		"src/lib.rs": "pub mod m1;\npub mod m2;\npub mod m3;\n",
		"src/m1.rs":  "pub fn f1() { crate::m2::f2(); }\n",
		"src/m2.rs":  "pub fn f2() { crate::m3::f3(); }\n",
		"src/m3.rs":  "pub fn f3() { crate::m1::f1(); }\n",
	})
	result := analyze(t, root, noGitConfig())

	cyclic := 0
	for _, is := range result.Issues {
		if is.Type == coupling.IssueCircularDependency {
			cyclic++
			assert.Len(t, is.Cycle, 3)
		}
	}
	assert.Equal(t, 3, cyclic, "one CircularDependency per cycle member")
}

func TestAnalyzeUnnecessaryAbstraction(t *testing.T) {
	cfg := noGitConfig()
	cfg.Volatility.Low = []string{"src/b.rs"}

	root := writeProject(t, map[string]string{
		"Cargo.toml": "[package]\nname = \"util\"\n",
		"src/lib.rs": "pub mod a;\npub mod b;\n",
		"src/a.rs":   "use crate::b::Normalize;\n\npub fn process<T: Normalize>() {}\n",
		"src/b.rs":   "pub trait Normalize {\n    fn norm(&self);\n}\n",
	})
	result := analyze(t, root, cfg)

	g := result.Graph
	var found bool
	for _, id := range g.SortedEdges() {
		e := g.Edge(id)
		if g.Node(e.Source).Path.String() != "util::a" || g.Node(e.Target).Path.String() != "util::b" {
			continue
		}
		found = true
		// The bound-only import must not lift the edge past Contract.
		assert.Equal(t, coupling.StrengthContract, e.Strength)
		assert.Equal(t, coupling.DistanceSameModule, e.Distance)
		assert.Equal(t, coupling.VolatilityLow, e.Volatility)
		assert.Equal(t, coupling.ClassLocalComplexity, coupling.Classify(e.Strength, e.Distance))
	}
	require.True(t, found, "expected edge util::a -> util::b")

	var issue *coupling.Issue
	for i := range result.Issues {
		if result.Issues[i].Type == coupling.IssueUnnecessaryAbstraction {
			issue = &result.Issues[i]
		}
	}
	require.NotNil(t, issue, "expected UnnecessaryAbstraction, got %+v", result.Issues)
	assert.Equal(t, coupling.SeverityMedium, issue.Severity)
	assert.Equal(t, "util::a", issue.Module)
	assert.Equal(t, "util::b", issue.Target)
}

func TestAnalyzeHighEfferentCoupling(t *testing.T) {
	files := map[string]string{
		"Cargo.toml": "[package]\nname = \"app\"\n",
	}
	lib := ""
	hub := "pub fn fan() {\n"
	for i := 0; i < 17; i++ {
		name := fmt.Sprintf("dep%02d", i)
		lib += fmt.Sprintf("pub mod %s;\n", name)
		hub += fmt.Sprintf("    crate::%s::run();\n", name)
		files[fmt.Sprintf("src/%s.rs", name)] = "pub fn run() {}\n"
	}
	files["src/lib.rs"] = lib + "pub mod hub;\n"
	files["src/hub.rs"] = hub + "}\n"

	result := analyze(t, writeProject(t, files), noGitConfig())

	hubID, ok := result.Graph.Lookup(mustParse("app::hub"))
	require.True(t, ok)
	assert.Equal(t, 17, result.Graph.CouplingsOut(hubID))

	var issue *coupling.Issue
	for i := range result.Issues {
		if result.Issues[i].Type == coupling.IssueHighEfferentCoupling {
			issue = &result.Issues[i]
		}
	}
	require.NotNil(t, issue, "expected HighEfferentCoupling, got %+v", result.Issues)
	assert.Equal(t, coupling.SeverityHigh, issue.Severity)
	assert.Equal(t, "app::hub", issue.Module)
}

func TestAnalyzeCrossCrateCounted(t *testing.T) {
	root := writeProject(t, map[string]string{
		"Cargo.toml": "[package]\nname = \"appA\"\n",
		"src/lib.rs": "pub mod core;\n",
		"src/core.rs": "pub fn build() -> u32 {\n" +
			"    let t = appB::internal::Thing { id: 1 };\n    t.id\n}\n",
	})
	result := analyze(t, root, noGitConfig())

	assert.Empty(t, result.Issues, "cross-crate intrusive edge raises nothing")

	g := result.Graph
	external := 0
	for _, id := range g.SortedEdges() {
		e := g.Edge(id)
		if !g.IsInternalEdge(e) {
			external++
			assert.Equal(t, coupling.DistanceDifferentCrate, e.Distance)
			assert.Equal(t, coupling.StrengthIntrusive, e.Strength)
		}
	}
	assert.NotZero(t, external, "external edge must be counted")
}

func TestAnalyzeWorkspaceMembers(t *testing.T) {
	root := writeProject(t, map[string]string{
		"Cargo.toml":            "[workspace]\nmembers = [\"crates/appA\", \"crates/appB\"]\n",
		"crates/appA/Cargo.toml": "[package]\nname = \"appA\"\n",
		"crates/appA/src/lib.rs": "pub fn entry() { appB::helper(); }\n",
		"crates/appB/Cargo.toml": "[package]\nname = \"appB\"\n",
		"crates/appB/src/lib.rs": "pub fn helper() {}\n",
	})
	result := analyze(t, root, noGitConfig())

	assert.ElementsMatch(t, []string{"appA", "appB"}, result.Workspace.Roots)

	// Both crates are project roots, so the cross-crate edge is internal
	// for counting but still excluded from problem detection.
	g := result.Graph
	for _, id := range g.SortedEdges() {
		e := g.Edge(id)
		if g.Node(e.Target).Path.Crate() == "appB" {
			assert.Equal(t, coupling.DistanceDifferentCrate, e.Distance)
			assert.True(t, g.IsInternalEdge(e))
			assert.False(t, g.EligibleForIssues(e))
		}
	}
}

func TestAnalyzeParseErrorIsDiagnostic(t *testing.T) {
	root := writeProject(t, map[string]string{
		"Cargo.toml":    "[package]\nname = \"app\"\n",
		"src/lib.rs":    "pub mod good;\npub mod bad;\n",
		"src/good.rs":   "pub fn ok() {}\n",
		"src/bad.rs":    "fn broken( {\n",
	})
	result := analyze(t, root, noGitConfig())

	require.Len(t, result.Diagnostics, 1)
	assert.Contains(t, result.Diagnostics[0].Path, "bad.rs")

	// The rest of the project is still analyzed.
	_, ok := result.Graph.Lookup(mustParse("app::good"))
	assert.True(t, ok)
}

func TestAnalyzeDeterministic(t *testing.T) {
	root := writeProject(t, map[string]string{
		"Cargo.toml":     "[package]\nname = \"app\"\n",
		"src/lib.rs":     "pub mod ui;\npub mod pricing;\npub mod audit;\n",
		"src/ui.rs":      "pub fn render() { crate::pricing::quote(); crate::audit::log(); }\n",
		"src/pricing.rs": "pub fn quote() { crate::audit::log(); }\n",
		"src/audit.rs":   "pub fn log() {}\n",
	})

	first := analyze(t, root, noGitConfig())
	second := analyze(t, root, noGitConfig())

	assert.Equal(t, first.HealthScore, second.HealthScore)
	assert.Equal(t, first.Issues, second.Issues)
	assert.Equal(t, first.Hotspots, second.Hotspots)
}

func TestAnalyzeCancellation(t *testing.T) {
	root := writeProject(t, map[string]string{
		"Cargo.toml": "[package]\nname = \"app\"\n",
		"src/lib.rs": "pub fn ok() {}\n",
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := New(WithConfig(noGitConfig()))
	_, err := a.AnalyzeProject(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}
