package coupling

import "sort"

// IssueType is the closed enumeration of detectable structural problems.
type IssueType string

const (
	IssueGlobalComplexity       IssueType = "GlobalComplexity"
	IssueCascadingChangeRisk    IssueType = "CascadingChangeRisk"
	IssueInappropriateIntimacy  IssueType = "InappropriateIntimacy"
	IssueUnnecessaryAbstraction IssueType = "UnnecessaryAbstraction"
	IssueHighEfferentCoupling   IssueType = "HighEfferentCoupling"
	IssueHighAfferentCoupling   IssueType = "HighAfferentCoupling"
	IssueCircularDependency     IssueType = "CircularDependency"
)

// Severity ranks issues.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
)

// Issue is one detected structural problem, attached to a module and
// optionally to the edge that raised it.
type Issue struct {
	Type     IssueType `json:"type"`
	Severity Severity  `json:"severity"`
	Module   string    `json:"module"`
	Target   string    `json:"target,omitempty"`
	Message  string    `json:"message"`
	Location *Location `json:"location,omitempty"`

	// Cycle enumerates the strongly connected component for
	// CircularDependency issues.
	Cycle []string `json:"cycle,omitempty"`
}

// Health classifies a module by the worst issue touching it.
type Health string

const (
	HealthCritical    Health = "critical"
	HealthNeedsReview Health = "needs_review"
	HealthGood        Health = "good"
)

// Thresholds bound the per-module degree issues.
type Thresholds struct {
	MaxDependencies int
	MaxDependents   int
}

// DefaultThresholds returns the standard degree limits.
func DefaultThresholds() Thresholds {
	return Thresholds{MaxDependencies: 15, MaxDependents: 20}
}

// DetectIssues evaluates the issue rules over a frozen graph. Edge rules run
// in priority order and an edge can raise more than one issue; cross-crate
// edges are skipped entirely. Results are ordered by module path, then issue
// type, then target, for deterministic output.
func DetectIssues(g *Graph, th Thresholds) []Issue {
	var issues []Issue

	for _, id := range g.SortedEdges() {
		e := g.Edge(id)
		if !g.EligibleForIssues(e) {
			continue
		}
		src := g.Node(e.Source).Path.String()
		tgt := g.Node(e.Target).Path.String()
		loc := e.Location

		if e.HasContext(ContextFieldAccess) || e.HasContext(ContextStructConstruction) || e.HasContext(ContextInherentImplBlock) {
			if e.Distance == DistanceDifferentModule {
				issues = append(issues, Issue{
					Type:     IssueGlobalComplexity,
					Severity: SeverityCritical,
					Module:   src,
					Target:   tgt,
					Message:  "intrusive access to the internals of a distant module",
					Location: &loc,
				})
			}
			if e.Distance.Value() >= DistanceDifferentModule.Value() {
				issues = append(issues, Issue{
					Type:     IssueInappropriateIntimacy,
					Severity: SeverityHigh,
					Module:   src,
					Target:   tgt,
					Message:  "depends on another module's internal structure",
					Location: &loc,
				})
			}
		}

		if e.Strength.Value() >= StrengthFunctional.Value() && e.Volatility == VolatilityHigh {
			issues = append(issues, Issue{
				Type:     IssueCascadingChangeRisk,
				Severity: SeverityCritical,
				Module:   src,
				Target:   tgt,
				Message:  "strong dependency on a frequently changing module",
				Location: &loc,
			})
		}

		if e.Strength.Value() <= StrengthContract.Value() &&
			e.Distance.Value() <= DistanceSameModule.Value() &&
			e.Volatility == VolatilityLow {
			issues = append(issues, Issue{
				Type:     IssueUnnecessaryAbstraction,
				Severity: SeverityMedium,
				Module:   src,
				Target:   tgt,
				Message:  "contract-only coupling to a stable nearby module",
				Location: &loc,
			})
		}
	}

	for _, id := range g.SortedNodes() {
		n := g.Node(id)
		if !n.Internal {
			continue
		}
		path := n.Path.String()

		if out := g.CouplingsOut(id); out > th.MaxDependencies {
			issues = append(issues, Issue{
				Type:     IssueHighEfferentCoupling,
				Severity: SeverityHigh,
				Module:   path,
				Message:  "depends on too many modules",
			})
		}
		if in := g.CouplingsIn(id); in > th.MaxDependents {
			issues = append(issues, Issue{
				Type:     IssueHighAfferentCoupling,
				Severity: SeverityHigh,
				Module:   path,
				Message:  "too many modules depend on this one",
			})
		}
		if n.InCycle {
			issues = append(issues, Issue{
				Type:     IssueCircularDependency,
				Severity: SeverityHigh,
				Module:   path,
				Message:  "participates in a dependency cycle",
				Cycle:    g.Cycle(id),
			})
		}
	}

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Module != issues[j].Module {
			return issues[i].Module < issues[j].Module
		}
		if issues[i].Type != issues[j].Type {
			return issues[i].Type < issues[j].Type
		}
		return issues[i].Target < issues[j].Target
	})
	return issues
}

// ModuleHealth derives the per-module health from the issues touching each
// module (as source or target).
func ModuleHealth(g *Graph, issues []Issue) map[string]Health {
	health := make(map[string]Health, g.NodeCount())
	for _, id := range g.SortedNodes() {
		health[g.Node(id).Path.String()] = HealthGood
	}

	worsen := func(module string, sev Severity) {
		cur, ok := health[module]
		if !ok {
			return
		}
		switch sev {
		case SeverityCritical:
			health[module] = HealthCritical
		case SeverityHigh:
			if cur != HealthCritical {
				health[module] = HealthNeedsReview
			}
		}
	}

	for _, is := range issues {
		worsen(is.Module, is.Severity)
		if is.Target != "" {
			worsen(is.Target, is.Severity)
		}
	}
	return health
}
