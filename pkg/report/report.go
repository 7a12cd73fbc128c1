// Package report projects an analysis into its stable, schema-versioned
// export form and renders it for humans.
package report

import (
	"sort"

	"github.com/tether-analysis/tether/pkg/analyzer/balance"
	"github.com/tether-analysis/tether/pkg/analyzer/volatility"
	"github.com/tether-analysis/tether/pkg/coupling"
)

// SchemaVersion identifies the export schema. Renderers negotiate on it.
const SchemaVersion = "1"

// Report is the read-only projection consumed by external renderers. It
// round-trips losslessly through JSON and is byte-identical across runs over
// the same input.
type Report struct {
	SchemaVersion string                `json:"schema_version"`
	Summary       Summary               `json:"summary"`
	Nodes         []Node                `json:"nodes"`
	Edges         []Edge                `json:"edges"`
	Issues        []coupling.Issue      `json:"issues"`
	Hotspots      []coupling.Hotspot    `json:"hotspots"`
	Diagnostics   []coupling.Diagnostic `json:"diagnostics"`
}

// Summary aggregates the run.
type Summary struct {
	Root          string           `json:"root"`
	Modules       int              `json:"modules"`
	InternalEdges int              `json:"internal_edges"`
	ExternalEdges int              `json:"external_edges"`
	HealthScore   float64          `json:"health_score"`
	Grade         string           `json:"grade"`
	IssueCount    int              `json:"issue_count"`
	CyclicModules int              `json:"cyclic_modules"`
	History       volatility.Stats `json:"history"`
}

// Node is one module with its metrics bundle and items for drill-down.
type Node struct {
	Module       string                 `json:"module"`
	Internal     bool                   `json:"internal"`
	InCycle      bool                   `json:"in_cycle"`
	CouplingsIn  int                    `json:"couplings_in"`
	CouplingsOut int                    `json:"couplings_out"`
	Health       coupling.Health        `json:"health"`
	Volatility   coupling.Volatility    `json:"volatility"`
	Depth        coupling.DepthClass    `json:"depth"`
	DepthRatio   float64                `json:"depth_ratio"`
	Metrics      coupling.ModuleMetrics `json:"metrics"`
	Items        []coupling.Item        `json:"items"`
}

// Edge carries the raw dimensions and the derived balance.
type Edge struct {
	Source     string                  `json:"source"`
	Target     string                  `json:"target"`
	Strength   coupling.Strength       `json:"strength"`
	Distance   coupling.Distance       `json:"distance"`
	Volatility coupling.Volatility     `json:"volatility"`
	Contexts   []coupling.UsageContext `json:"contexts"`
	Count      int                     `json:"count"`
	Visibility coupling.Visibility     `json:"visibility,omitempty"`
	Location   coupling.Location       `json:"location"`
	Internal   bool                    `json:"internal"`
	InCycle    bool                    `json:"in_cycle"`
	Balance    Balance                 `json:"balance"`
}

// Balance is the derived edge score and classification.
type Balance struct {
	Value          float64                 `json:"value"`
	Classification coupling.Classification `json:"classification"`
}

// Build projects an analysis. Nodes and edges are ordered by module path so
// two runs over the same input export identical bytes.
func Build(a *balance.Analysis) *Report {
	g := a.Graph
	r := &Report{
		SchemaVersion: SchemaVersion,
		Issues:        a.Issues,
		Hotspots:      a.Hotspots,
		Diagnostics:   a.Diagnostics,
	}
	if r.Issues == nil {
		r.Issues = []coupling.Issue{}
	}
	if r.Hotspots == nil {
		r.Hotspots = []coupling.Hotspot{}
	}
	if r.Diagnostics == nil {
		r.Diagnostics = []coupling.Diagnostic{}
	}

	cyclic := 0
	r.Nodes = make([]Node, 0, g.NodeCount())
	for _, id := range g.SortedNodes() {
		n := g.Node(id)
		path := n.Path.String()
		depth, ratio := n.Metrics.Depth()

		items := make([]coupling.Item, len(n.Items))
		copy(items, n.Items)
		sort.Slice(items, func(i, j int) bool {
			if items[i].Location.File != items[j].Location.File {
				return items[i].Location.File < items[j].Location.File
			}
			if items[i].Location.Line != items[j].Location.Line {
				return items[i].Location.Line < items[j].Location.Line
			}
			return items[i].Name < items[j].Name
		})

		vol, ok := a.Volatility[path]
		if !ok {
			vol = coupling.VolatilityUnknown
		}
		if n.InCycle {
			cyclic++
		}
		r.Nodes = append(r.Nodes, Node{
			Module:       path,
			Internal:     n.Internal,
			InCycle:      n.InCycle,
			CouplingsIn:  g.CouplingsIn(id),
			CouplingsOut: g.CouplingsOut(id),
			Health:       a.Health[path],
			Volatility:   vol,
			Depth:        depth,
			DepthRatio:   ratio,
			Metrics:      n.Metrics,
			Items:        items,
		})
	}

	r.Edges = make([]Edge, 0, g.EdgeCount())
	for _, id := range g.SortedEdges() {
		e := g.Edge(id)
		internal := g.IsInternalEdge(e)
		if internal {
			r.Summary.InternalEdges++
		} else {
			r.Summary.ExternalEdges++
		}
		contexts := make([]coupling.UsageContext, len(e.Contexts))
		copy(contexts, e.Contexts)
		r.Edges = append(r.Edges, Edge{
			Source:     g.Node(e.Source).Path.String(),
			Target:     g.Node(e.Target).Path.String(),
			Strength:   e.Strength,
			Distance:   e.Distance,
			Volatility: e.Volatility,
			Contexts:   contexts,
			Count:      e.Count,
			Visibility: e.Visibility,
			Location:   e.Location,
			Internal:   internal,
			InCycle:    e.InCycle,
			Balance: Balance{
				Value:          coupling.BalanceValue(e.Strength, e.Distance, e.Volatility),
				Classification: coupling.Classify(e.Strength, e.Distance),
			},
		})
	}

	r.Summary.Root = a.Root
	r.Summary.Modules = g.NodeCount()
	r.Summary.HealthScore = a.HealthScore
	r.Summary.Grade = a.Grade
	r.Summary.IssueCount = len(a.Issues)
	r.Summary.CyclicModules = cyclic
	r.Summary.History = a.History
	return r
}
