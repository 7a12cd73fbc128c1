package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// maxListed bounds the hotspot and issue tables in human output.
const maxListed = 10

// RenderData returns the projection for JSON serialization.
func (r *Report) RenderData() any {
	return r
}

// RenderText writes the human-readable report.
func (r *Report) RenderText(w io.Writer, colored bool) error {
	heading := func(s string) {
		if colored {
			fmt.Fprintln(w, color.CyanString(s))
		} else {
			fmt.Fprintln(w, s)
		}
	}

	heading("Coupling Balance")
	fmt.Fprintf(w, "  Modules:        %d\n", r.Summary.Modules)
	fmt.Fprintf(w, "  Internal edges: %d\n", r.Summary.InternalEdges)
	fmt.Fprintf(w, "  External edges: %d\n", r.Summary.ExternalEdges)
	fmt.Fprintf(w, "  Issues:         %d\n", r.Summary.IssueCount)
	fmt.Fprintf(w, "  Cyclic modules: %d\n", r.Summary.CyclicModules)
	fmt.Fprintf(w, "  Health score:   %.2f (%s)\n", r.Summary.HealthScore, r.Summary.Grade)
	fmt.Fprintln(w)

	if len(r.Hotspots) > 0 {
		heading("Hotspots")
		table := tablewriter.NewTable(w)
		table.Header([]string{"Module", "Score", "Issues", "Couplings", "Health"})
		for i, h := range r.Hotspots {
			if i >= maxListed {
				break
			}
			table.Append([]string{h.Module, fmt.Sprintf("%.0f", h.Score),
				fmt.Sprintf("%d", h.Issues), fmt.Sprintf("%d", h.Couplings), string(h.Health)})
		}
		if err := table.Render(); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}

	if len(r.Issues) > 0 {
		heading("Issues")
		table := tablewriter.NewTable(w)
		table.Header([]string{"Severity", "Type", "Module", "Target"})
		for i, is := range r.Issues {
			if i >= maxListed {
				break
			}
			table.Append([]string{string(is.Severity), string(is.Type), is.Module, is.Target})
		}
		if err := table.Render(); err != nil {
			return err
		}
		if len(r.Issues) > maxListed {
			fmt.Fprintf(w, "  ... and %d more\n", len(r.Issues)-maxListed)
		}
	}

	if len(r.Diagnostics) > 0 {
		fmt.Fprintln(w)
		heading("Diagnostics")
		for _, d := range r.Diagnostics {
			if d.Line > 0 {
				fmt.Fprintf(w, "  %s:%d: %s\n", d.Path, d.Line, d.Message)
			} else {
				fmt.Fprintf(w, "  %s: %s\n", d.Path, d.Message)
			}
		}
	}
	return nil
}

// RenderMarkdown writes the report as Markdown.
func (r *Report) RenderMarkdown(w io.Writer) error {
	fmt.Fprintln(w, "# Coupling Balance")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "- Modules: %d\n", r.Summary.Modules)
	fmt.Fprintf(w, "- Internal edges: %d\n", r.Summary.InternalEdges)
	fmt.Fprintf(w, "- External edges: %d\n", r.Summary.ExternalEdges)
	fmt.Fprintf(w, "- Issues: %d\n", r.Summary.IssueCount)
	fmt.Fprintf(w, "- Health score: %.2f (%s)\n", r.Summary.HealthScore, r.Summary.Grade)
	fmt.Fprintln(w)

	if len(r.Hotspots) > 0 {
		fmt.Fprintln(w, "## Hotspots")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "| Module | Score | Issues | Couplings | Health |")
		fmt.Fprintln(w, "|--------|-------|--------|-----------|--------|")
		for i, h := range r.Hotspots {
			if i >= maxListed {
				break
			}
			fmt.Fprintf(w, "| %s | %.0f | %d | %d | %s |\n", h.Module, h.Score, h.Issues, h.Couplings, h.Health)
		}
		fmt.Fprintln(w)
	}

	if len(r.Issues) > 0 {
		fmt.Fprintln(w, "## Issues")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "| Severity | Type | Module | Target |")
		fmt.Fprintln(w, "|----------|------|--------|--------|")
		for _, is := range r.Issues {
			fmt.Fprintf(w, "| %s | %s | %s | %s |\n", is.Severity, is.Type, is.Module, is.Target)
		}
	}
	return nil
}

// ToMermaid renders the internal module graph as a Mermaid diagram.
func (r *Report) ToMermaid() string {
	out := "graph TD\n"
	for _, n := range r.Nodes {
		if !n.Internal {
			continue
		}
		out += "    " + mermaidID(n.Module) + "[\"" + n.Module + "\"]\n"
	}
	for _, e := range r.Edges {
		if !e.Internal {
			continue
		}
		arrow := "-->"
		if e.InCycle {
			arrow = "-.->"
		}
		out += "    " + mermaidID(e.Source) + " " + arrow + " " + mermaidID(e.Target) + "\n"
	}
	return out
}

// mermaidID makes a module path safe for Mermaid node ids.
func mermaidID(id string) string {
	out := make([]rune, 0, len(id))
	for _, c := range id {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			out = append(out, c)
		} else {
			out = append(out, '_')
		}
	}
	return string(out)
}
