package coupling

import (
	"fmt"
	"sort"

	"github.com/tether-analysis/tether/pkg/modpath"
)

// NodeID indexes the graph's flat node table.
type NodeID int

// EdgeID indexes the graph's flat edge table.
type EdgeID int

// Node is one module in the coupling graph.
type Node struct {
	ID      NodeID
	Path    modpath.Path
	Metrics ModuleMetrics
	Items   []Item
	InCycle bool

	// Internal is true when the module's crate root is one of the
	// project's declared roots.
	Internal bool
}

// Edge aggregates every usage between one ordered module pair.
type Edge struct {
	ID     EdgeID
	Source NodeID
	Target NodeID

	Strength   Strength
	Distance   Distance
	Volatility Volatility
	Visibility Visibility

	// Contexts is the set of usage contexts folded into this edge, kept
	// sorted for deterministic output.
	Contexts []UsageContext
	Count    int
	Location Location
	InCycle  bool
}

// HasContext reports whether ctx was observed on this edge.
func (e *Edge) HasContext(ctx UsageContext) bool {
	for _, c := range e.Contexts {
		if c == ctx {
			return true
		}
	}
	return false
}

// Graph is a directed multigraph of modules. It is built incrementally and
// frozen before the balance engine runs; cycles in the data never correspond
// to cycles in ownership because nodes and edges live in flat tables and
// reference each other through small integer ids.
type Graph struct {
	nodes  []Node
	edges  []Edge
	byPath map[string]NodeID
	byPair map[[2]NodeID]EdgeID
	frozen bool
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		byPath: make(map[string]NodeID),
		byPair: make(map[[2]NodeID]EdgeID),
	}
}

// EnsureNode returns the node for path, creating it if needed.
func (g *Graph) EnsureNode(path modpath.Path) NodeID {
	if id, ok := g.byPath[path.String()]; ok {
		return id
	}
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, Node{
		ID:      id,
		Path:    path,
		Metrics: NewModuleMetrics(),
	})
	g.byPath[path.String()] = id
	return id
}

// Lookup returns the node id for path, if registered.
func (g *Graph) Lookup(path modpath.Path) (NodeID, bool) {
	id, ok := g.byPath[path.String()]
	return id, ok
}

// Node returns the node for id.
func (g *Graph) Node(id NodeID) *Node {
	return &g.nodes[id]
}

// Edge returns the edge for id.
func (g *Graph) Edge(id EdgeID) *Edge {
	return &g.edges[id]
}

// NodeCount returns the number of modules.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// AddItem registers an item definition with its module's metrics bundle and
// retains it for report drill-down.
func (g *Graph) AddItem(it Item) {
	id := g.EnsureNode(it.Module)
	g.nodes[id].Metrics.AddItem(it)
	g.nodes[id].Items = append(g.nodes[id].Items, it)
}

// AddTraitImpl bumps the trait-impl counter for a module.
func (g *Graph) AddTraitImpl(module modpath.Path) {
	id := g.EnsureNode(module)
	g.nodes[id].Metrics.TraitImplCount++
}

// AddInherentImpl bumps the inherent-impl counter for a module.
func (g *Graph) AddInherentImpl(module modpath.Path) {
	id := g.EnsureNode(module)
	g.nodes[id].Metrics.InherentImplCount++
}

// FoldUsage folds one usage into the edge for (src, tgt), creating nodes and
// the edge as needed. The edge's strength is the max strength seen, its
// distance a pure function of the two paths, its location the first
// observed.
func (g *Graph) FoldUsage(src, tgt modpath.Path, ctx UsageContext, loc Location) {
	if g.frozen {
		panic("coupling: FoldUsage on frozen graph")
	}
	srcID := g.EnsureNode(src)
	tgtID := g.EnsureNode(tgt)

	key := [2]NodeID{srcID, tgtID}
	id, ok := g.byPair[key]
	if !ok {
		id = EdgeID(len(g.edges))
		g.edges = append(g.edges, Edge{
			ID:         id,
			Source:     srcID,
			Target:     tgtID,
			Strength:   StrengthOf(ctx),
			Distance:   DistanceBetween(src, tgt),
			Volatility: VolatilityUnknown,
			Location:   loc,
		})
		g.byPair[key] = id
	}

	e := &g.edges[id]
	if s := StrengthOf(ctx); s.Value() > e.Strength.Value() {
		e.Strength = s
	}
	if !e.HasContext(ctx) {
		e.Contexts = append(e.Contexts, ctx)
		sort.Slice(e.Contexts, func(i, j int) bool { return e.Contexts[i] < e.Contexts[j] })
	}
	e.Count++
}

// SetEdgeVisibility records the target item's visibility on the edge for
// (src, tgt), when that edge exists and has none yet.
func (g *Graph) SetEdgeVisibility(src, tgt modpath.Path, vis Visibility) {
	srcID, ok := g.byPath[src.String()]
	if !ok {
		return
	}
	tgtID, ok := g.byPath[tgt.String()]
	if !ok {
		return
	}
	if id, ok := g.byPair[[2]NodeID{srcID, tgtID}]; ok && g.edges[id].Visibility == "" {
		g.edges[id].Visibility = vis
	}
}

// SetRoots marks each node whose crate is one of the project roots as
// internal. Edges to external crates are recorded for counting but excluded
// from problem detection.
func (g *Graph) SetRoots(roots []string) {
	rootSet := make(map[string]bool, len(roots))
	for _, r := range roots {
		rootSet[r] = true
	}
	for i := range g.nodes {
		g.nodes[i].Internal = rootSet[g.nodes[i].Path.Crate()]
	}
	for i := range g.edges {
		e := &g.edges[i]
		if !g.nodes[e.Target].Internal {
			e.Distance = DistanceDifferentCrate
		}
	}
}

// SetVolatility assigns the target module's volatility to every edge.
func (g *Graph) SetVolatility(classify func(modpath.Path) Volatility) {
	for i := range g.edges {
		e := &g.edges[i]
		e.Volatility = classify(g.nodes[e.Target].Path)
	}
}

// CouplingsOut returns the number of distinct outgoing edges of a node.
func (g *Graph) CouplingsOut(id NodeID) int {
	n := 0
	for i := range g.edges {
		if g.edges[i].Source == id {
			n++
		}
	}
	return n
}

// CouplingsIn returns the number of distinct incoming edges of a node.
func (g *Graph) CouplingsIn(id NodeID) int {
	n := 0
	for i := range g.edges {
		if g.edges[i].Target == id {
			n++
		}
	}
	return n
}

// IsInternalEdge reports whether the edge's target belongs to a project
// root. Internal edges feed the health score; external ones only counts.
func (g *Graph) IsInternalEdge(e *Edge) bool {
	return g.nodes[e.Target].Internal
}

// EligibleForIssues reports whether the edge participates in problem
// detection. Cross-crate edges are recorded for counting but never raise
// edge issues, whether the target crate is a workspace member or not.
func (g *Graph) EligibleForIssues(e *Edge) bool {
	return g.nodes[e.Target].Internal && e.Distance != DistanceDifferentCrate
}

// SortedNodes returns node ids ordered by module path. All externally
// visible iteration goes through this so two runs over the same input
// produce identical output.
func (g *Graph) SortedNodes() []NodeID {
	ids := make([]NodeID, len(g.nodes))
	for i := range g.nodes {
		ids[i] = NodeID(i)
	}
	sort.Slice(ids, func(i, j int) bool {
		return g.nodes[ids[i]].Path.Less(g.nodes[ids[j]].Path)
	})
	return ids
}

// SortedEdges returns edge ids ordered by (source path, target path).
func (g *Graph) SortedEdges() []EdgeID {
	ids := make([]EdgeID, len(g.edges))
	for i := range g.edges {
		ids[i] = EdgeID(i)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := &g.edges[ids[i]], &g.edges[ids[j]]
		as, bs := g.nodes[a.Source].Path.String(), g.nodes[b.Source].Path.String()
		if as != bs {
			return as < bs
		}
		return g.nodes[a.Target].Path.String() < g.nodes[b.Target].Path.String()
	})
	return ids
}

// Freeze runs cycle detection, then seals the graph against mutation.
func (g *Graph) Freeze() {
	g.detectCycles()
	g.frozen = true
}

// detectCycles finds strongly connected components with Tarjan's algorithm.
// Every SCC of size >= 2 marks its nodes and the edges between them as
// cyclic.
func (g *Graph) detectCycles() {
	n := len(g.nodes)
	if n == 0 {
		return
	}

	// A module referencing itself is ordinary intra-module cohesion, not a
	// dependency cycle: only SCCs of size >= 2 count.
	adj := make([][]NodeID, n)
	for i := range g.edges {
		e := &g.edges[i]
		if e.Source != e.Target {
			adj[e.Source] = append(adj[e.Source], e.Target)
		}
	}

	index := 0
	indices := make([]int, n)
	lowLinks := make([]int, n)
	onStack := make([]bool, n)
	stack := make([]NodeID, 0, n)
	component := make([]int, n)
	for i := range indices {
		indices[i] = -1
		component[i] = -1
	}

	componentCount := 0
	var strongConnect func(v NodeID)
	strongConnect = func(v NodeID) {
		indices[v] = index
		lowLinks[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adj[v] {
			if indices[w] == -1 {
				strongConnect(w)
				if lowLinks[w] < lowLinks[v] {
					lowLinks[v] = lowLinks[w]
				}
			} else if onStack[w] {
				if indices[w] < lowLinks[v] {
					lowLinks[v] = indices[w]
				}
			}
		}

		if lowLinks[v] == indices[v] {
			var scc []NodeID
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			if len(scc) > 1 {
				for _, w := range scc {
					g.nodes[w].InCycle = true
					component[w] = componentCount
				}
			}
			componentCount++
		}
	}

	for i := range g.nodes {
		if indices[i] == -1 {
			strongConnect(NodeID(i))
		}
	}

	for i := range g.edges {
		e := &g.edges[i]
		if e.Source != e.Target &&
			component[e.Source] >= 0 && component[e.Source] == component[e.Target] {
			g.edges[i].InCycle = true
		}
	}
}

// Cycle returns the sorted module paths of the SCC containing id, or nil if
// the node is not on a cycle.
func (g *Graph) Cycle(id NodeID) []string {
	if !g.nodes[id].InCycle {
		return nil
	}
	member := map[NodeID]bool{id: true}
	changed := true
	for changed {
		changed = false
		for i := range g.edges {
			e := &g.edges[i]
			if e.InCycle && member[e.Source] && !member[e.Target] {
				member[e.Target] = true
				changed = true
			}
			if e.InCycle && member[e.Target] && !member[e.Source] {
				member[e.Source] = true
				changed = true
			}
		}
	}
	paths := make([]string, 0, len(member))
	for m := range member {
		if g.nodes[m].InCycle {
			paths = append(paths, g.nodes[m].Path.String())
		}
	}
	sort.Strings(paths)
	return paths
}

// Validate checks the structural invariants. A violation is a bug in the
// builder, reported as an InvariantError.
func (g *Graph) Validate() error {
	for i := range g.edges {
		e := &g.edges[i]
		if int(e.Source) >= len(g.nodes) || int(e.Target) >= len(g.nodes) {
			return &InvariantError{
				Invariant: "I1",
				Detail:    fmt.Sprintf("edge %d references missing node", e.ID),
			}
		}
		implied := Strength("")
		for _, ctx := range e.Contexts {
			if s := StrengthOf(ctx); s.Value() > implied.Value() {
				implied = s
			}
		}
		if len(e.Contexts) > 0 && e.Strength != implied {
			return &InvariantError{
				Invariant: "I2",
				Detail:    fmt.Sprintf("edge %d strength %s, contexts imply %s", e.ID, e.Strength, implied),
			}
		}
		src, tgt := g.nodes[e.Source], g.nodes[e.Target]
		if tgt.Internal && e.Distance != DistanceBetween(src.Path, tgt.Path) {
			return &InvariantError{
				Invariant: "I3",
				Detail:    fmt.Sprintf("edge %s -> %s distance %s", src.Path, tgt.Path, e.Distance),
			}
		}
		if !tgt.Internal && e.Distance != DistanceDifferentCrate {
			return &InvariantError{
				Invariant: "I4",
				Detail:    fmt.Sprintf("external edge %s -> %s distance %s", src.Path, tgt.Path, e.Distance),
			}
		}
		if e.InCycle && !(g.nodes[e.Source].InCycle && g.nodes[e.Target].InCycle) {
			return &InvariantError{
				Invariant: "I5",
				Detail:    fmt.Sprintf("cyclic edge %d has acyclic endpoint", e.ID),
			}
		}
	}
	return nil
}
