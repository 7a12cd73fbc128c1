package coupling

import "sort"

// Hotspot ranks one module by a weighted severity score.
type Hotspot struct {
	Module    string  `json:"module"`
	Score     float64 `json:"score"`
	Issues    int     `json:"issues"`
	Couplings int     `json:"couplings"`
	Health    Health  `json:"health"`
	InCycle   bool    `json:"in_cycle"`
}

// Weights of the hotspot score.
const (
	weightIssue       = 30
	weightCoupling    = 5
	weightCritical    = 50
	weightNeedsReview = 20
	weightCycle       = 40
)

// RankHotspots scores every internal module and returns them sorted by
// descending score, ties broken by module path.
func RankHotspots(g *Graph, issues []Issue, health map[string]Health) []Hotspot {
	issueCount := make(map[string]int)
	for _, is := range issues {
		issueCount[is.Module]++
	}

	var hotspots []Hotspot
	for _, id := range g.SortedNodes() {
		n := g.Node(id)
		if !n.Internal {
			continue
		}
		path := n.Path.String()
		couplings := g.CouplingsIn(id) + g.CouplingsOut(id)

		score := float64(weightIssue*issueCount[path] + weightCoupling*couplings)
		switch health[path] {
		case HealthCritical:
			score += weightCritical
		case HealthNeedsReview:
			score += weightNeedsReview
		}
		if n.InCycle {
			score += weightCycle
		}

		hotspots = append(hotspots, Hotspot{
			Module:    path,
			Score:     score,
			Issues:    issueCount[path],
			Couplings: couplings,
			Health:    health[path],
			InCycle:   n.InCycle,
		})
	}

	sort.SliceStable(hotspots, func(i, j int) bool {
		if hotspots[i].Score != hotspots[j].Score {
			return hotspots[i].Score > hotspots[j].Score
		}
		return hotspots[i].Module < hotspots[j].Module
	})
	return hotspots
}
