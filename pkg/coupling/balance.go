package coupling

// The balance algebra extends boolean operators to [0,1] with the standard
// probabilistic-logic interpretation:
//
//	a AND b = a*b
//	a OR  b = a + b - a*b
//	NOT a   = 1 - a
//	a XOR b = a + b - 2*a*b
//
// Modularity = S XOR D: high when exactly one of strength and distance is
// high. Balance = Modularity OR NOT V: volatile targets need modular edges.

func probOr(a, b float64) float64  { return a + b - a*b }
func probXor(a, b float64) float64 { return a + b - 2*a*b }
func probNot(a float64) float64    { return 1 - a }

// BalanceValue computes the edge balance in [0,1]. Higher is better.
func BalanceValue(s Strength, d Distance, v Volatility) float64 {
	modularity := probXor(s.Value(), d.Value())
	return probOr(modularity, probNot(v.Value()))
}

// Classification buckets an edge by its strength/distance combination.
type Classification string

const (
	// ClassGlobalComplexity: strong coupling across a wide gap.
	ClassGlobalComplexity Classification = "global_complexity"
	// ClassHighCohesion: strong and close. Good.
	ClassHighCohesion Classification = "high_cohesion"
	// ClassLooseCoupling: weak and far. Good.
	ClassLooseCoupling Classification = "loose_coupling"
	// ClassLocalComplexity: weak and close, possible over-abstraction.
	ClassLocalComplexity Classification = "local_complexity"
)

// Classify buckets an edge by whether strength and distance cross 0.5.
func Classify(s Strength, d Distance) Classification {
	strong := s.Value() >= 0.5
	far := d.Value() >= 0.5
	switch {
	case strong && far:
		return ClassGlobalComplexity
	case strong && !far:
		return ClassHighCohesion
	case !strong && far:
		return ClassLooseCoupling
	default:
		return ClassLocalComplexity
	}
}

// Grade converts a health score into a letter grade.
func Grade(score float64) string {
	switch {
	case score >= 0.90:
		return "A"
	case score >= 0.80:
		return "B"
	case score >= 0.60:
		return "C"
	case score >= 0.40:
		return "D"
	default:
		return "F"
	}
}

// HealthScore is the mean balance over all internal edges of the graph.
// A graph with no internal edges scores a perfect 1.
func HealthScore(g *Graph) float64 {
	var sum float64
	var n int
	for _, id := range g.SortedEdges() {
		e := g.Edge(id)
		if !g.IsInternalEdge(e) {
			continue
		}
		sum += BalanceValue(e.Strength, e.Distance, e.Volatility)
		n++
	}
	if n == 0 {
		return 1
	}
	return sum / float64(n)
}
