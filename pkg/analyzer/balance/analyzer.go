// Package balance drives the coupling balance analysis pipeline: workspace
// resolution, parallel extraction, graph building, volatility merging and
// the balance engine.
package balance

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"

	"github.com/tether-analysis/tether/internal/cache"
	"github.com/tether-analysis/tether/internal/fileproc"
	"github.com/tether-analysis/tether/pkg/analyzer/extract"
	"github.com/tether-analysis/tether/pkg/analyzer/volatility"
	"github.com/tether-analysis/tether/pkg/config"
	"github.com/tether-analysis/tether/pkg/coupling"
	"github.com/tether-analysis/tether/pkg/modpath"
	"github.com/tether-analysis/tether/pkg/parser"
	"github.com/tether-analysis/tether/pkg/workspace"
)

// Analyzer runs the full pipeline over one project root.
type Analyzer struct {
	cfg        *config.Config
	cache      *cache.Cache
	onProgress fileproc.ProgressFunc
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithConfig sets the run configuration.
func WithConfig(cfg *config.Config) Option {
	return func(a *Analyzer) {
		a.cfg = cfg
	}
}

// WithCache installs a per-file extraction cache.
func WithCache(c *cache.Cache) Option {
	return func(a *Analyzer) {
		a.cache = c
	}
}

// WithProgress sets a callback invoked once per processed file.
func WithProgress(fn fileproc.ProgressFunc) Option {
	return func(a *Analyzer) {
		a.onProgress = fn
	}
}

// New creates an analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{cfg: config.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeProject analyzes the project at root and returns the frozen result.
// Per-file failures become diagnostics; workspace, configuration and
// invariant failures are fatal.
func (a *Analyzer) AnalyzeProject(ctx context.Context, root string) (*Analysis, error) {
	ws, err := workspace.Resolve(root, a.cfg.Volatility.Ignore)
	if err != nil {
		return nil, err
	}

	fileModules := make(map[string]modpath.Path, ws.FileCount())
	var files []string
	for _, pkg := range ws.Packages {
		for _, f := range pkg.Files {
			fileModules[f] = pkg.FileModule(f)
			files = append(files, f)
		}
	}
	sort.Strings(files)

	extractor := extract.New()
	extractions, errs := fileproc.MapFiles(ctx, files, a.cfg.Analysis.Jobs,
		func(ctx context.Context, psr *parser.Parser, path string) (*extract.FileExtraction, error) {
			return a.extractOne(ctx, extractor, psr, path, fileModules[path])
		}, a.onProgress)

	// Cancellation discards partial results.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var diagnostics []coupling.Diagnostic
	for _, fe := range errs.All() {
		d := coupling.Diagnostic{Path: fe.Path, Message: fe.Err.Error()}
		var perr *coupling.ParseError
		if errors.As(fe.Err, &perr) {
			d.Line = perr.Line
		}
		diagnostics = append(diagnostics, d)
	}
	sort.Slice(diagnostics, func(i, j int) bool { return diagnostics[i].Path < diagnostics[j].Path })

	// The graph builder is deterministic given the multiset of
	// extractions; sorting by path makes the fold order itself stable.
	sort.Slice(extractions, func(i, j int) bool { return extractions[i].Path < extractions[j].Path })

	b := newBuilder()
	for _, pkg := range ws.Packages {
		b.registerModule(modpath.New(pkg.Name))
		for _, f := range pkg.Files {
			b.registerModule(pkg.FileModule(f))
		}
	}
	for _, fe := range extractions {
		b.fold(fe)
	}
	for _, fe := range extractions {
		b.foldUsages(fe)
	}

	graph := b.graph
	graph.SetRoots(ws.Roots)

	oracle := volatility.New(
		volatility.WithMonths(a.cfg.Analysis.GitMonths),
		volatility.WithOverrides(a.cfg.Volatility.High, a.cfg.Volatility.Low),
		volatility.WithDisabled(a.cfg.Analysis.NoGit),
	)
	oracle.Analyze(ctx, root)

	moduleFiles := make(map[string][]string)
	for _, pkg := range ws.Packages {
		for _, f := range pkg.Files {
			rel, err := filepath.Rel(root, f)
			if err != nil {
				rel = f
			}
			m := pkg.FileModule(f).String()
			moduleFiles[m] = append(moduleFiles[m], filepath.ToSlash(rel))
		}
	}
	byModule := oracle.Classify(moduleFiles)
	graph.SetVolatility(func(p modpath.Path) coupling.Volatility {
		if v, ok := byModule[p.String()]; ok {
			return v
		}
		return coupling.VolatilityUnknown
	})

	graph.Freeze()
	if err := graph.Validate(); err != nil {
		return nil, err
	}

	issues := coupling.DetectIssues(graph, a.cfg.CouplingThresholds())
	health := coupling.ModuleHealth(graph, issues)
	score := coupling.HealthScore(graph)

	return &Analysis{
		Root:        root,
		Workspace:   ws,
		Graph:       graph,
		Issues:      issues,
		Health:      health,
		HealthScore: score,
		Grade:       coupling.Grade(score),
		Hotspots:    coupling.RankHotspots(graph, issues, health),
		Volatility:  byModule,
		History:     oracle.Stats(),
		Diagnostics: diagnostics,
	}, nil
}

// extractOne parses and extracts a single file, consulting the cache first.
func (a *Analyzer) extractOne(ctx context.Context, extractor *extract.Extractor, psr *parser.Parser, path string, module modpath.Path) (*extract.FileExtraction, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, &coupling.IoError{Path: path, Err: err}
	}

	var contentHash string
	if a.cache != nil {
		contentHash = cache.HashBytes(source)
		if data, ok := a.cache.Get(path, contentHash); ok {
			var fe extract.FileExtraction
			if err := json.Unmarshal(data, &fe); err == nil {
				return &fe, nil
			}
		}
	}

	result, err := psr.Parse(ctx, source, path)
	if err != nil {
		return nil, &coupling.ParseError{Path: path, Err: err}
	}
	fe, err := extractor.Extract(result, module)
	if err != nil {
		return nil, err
	}

	if a.cache != nil {
		if data, err := json.Marshal(fe); err == nil {
			_ = a.cache.Put(path, contentHash, data)
		}
	}
	return fe, nil
}
