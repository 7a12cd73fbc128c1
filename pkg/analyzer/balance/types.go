package balance

import (
	"github.com/tether-analysis/tether/pkg/analyzer/volatility"
	"github.com/tether-analysis/tether/pkg/coupling"
	"github.com/tether-analysis/tether/pkg/workspace"
)

// Analysis is the frozen result of one run. It carries no timestamps so the
// exported projection is byte-identical across runs over the same input.
type Analysis struct {
	Root      string
	Workspace *workspace.Workspace
	Graph     *coupling.Graph

	Issues      []coupling.Issue
	Health      map[string]coupling.Health
	HealthScore float64
	Grade       string
	Hotspots    []coupling.Hotspot

	Volatility map[string]coupling.Volatility
	History    volatility.Stats

	Diagnostics []coupling.Diagnostic
}
