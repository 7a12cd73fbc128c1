package balance

import (
	"github.com/tether-analysis/tether/pkg/analyzer/extract"
	"github.com/tether-analysis/tether/pkg/coupling"
	"github.com/tether-analysis/tether/pkg/modpath"
)

// builder folds owned extraction records into a coupling graph. It runs
// sequentially after the parallel extraction stage; the graph is never
// shared while mutable.
type builder struct {
	graph *coupling.Graph
	known map[string]bool

	// itemVis maps fully-qualified item paths to their visibility so it
	// can be propagated onto edges that target them.
	itemVis map[string]coupling.Visibility
}

func newBuilder() *builder {
	return &builder{
		graph:   coupling.NewGraph(),
		known:   make(map[string]bool),
		itemVis: make(map[string]coupling.Visibility),
	}
}

// registerModule makes a module path resolvable as a usage target. Every
// ancestor is registered too so deep item paths resolve to the nearest
// defining module.
func (b *builder) registerModule(path modpath.Path) {
	for !path.IsZero() {
		if b.known[path.String()] {
			return
		}
		b.known[path.String()] = true
		b.graph.EnsureNode(path)
		path = path.Parent()
	}
}

// fold adds one file's extraction to the graph.
func (b *builder) fold(fe *extract.FileExtraction) {
	b.registerModule(fe.Module)

	node := fe.Module
	for _, it := range fe.Items {
		b.graph.AddItem(it)
		if it.Name != "" {
			b.itemVis[it.Module.Child(it.Name).String()] = it.Visibility
		}
	}
	for i := 0; i < fe.TraitImpls; i++ {
		b.graph.AddTraitImpl(node)
	}
	for i := 0; i < fe.InherentImpls; i++ {
		b.graph.AddInherentImpl(node)
	}
}

// foldUsages resolves each usage target to a module and folds it into its
// edge. This runs after every file's items are registered so the
// longest-prefix match sees the whole project.
func (b *builder) foldUsages(fe *extract.FileExtraction) {
	for _, u := range fe.Usages {
		target := b.targetModule(modpath.Parse(u.TargetPath))
		if target.IsZero() {
			continue
		}
		b.graph.FoldUsage(u.SourceModule, target, u.Context, u.Location)
		if vis, ok := b.itemVis[u.TargetPath]; ok {
			b.graph.SetEdgeVisibility(u.SourceModule, target, vis)
		}
	}
}

// targetModule finds the longest known module prefix of a target path,
// falling back to the path's first segment: an unknown crate root becomes an
// external module at DifferentCrate distance.
func (b *builder) targetModule(target modpath.Path) modpath.Path {
	if target.IsZero() {
		return target
	}
	segs := target.Segments()
	for i := len(segs); i >= 1; i-- {
		candidate := modpath.New(segs[:i]...)
		if b.known[candidate.String()] {
			return candidate
		}
	}
	return modpath.New(segs[0])
}
