package stitch

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

type GraphInfo struct {
	Modules []ModuleInfo
}

type ModuleInfo struct {
	Name        string
	Imports     []string
	Deferred    []string
	Exports     []string
	Controllers []string
	Global      bool
	Providers   []ProviderInfo
}

type ProviderInfo struct {
	Token        string
	Scope        string
	Dependencies []string
	Exported     bool
	Instantiated bool
}

// Graph describes modules in topological order with their providers.
func (a *Application) Graph() GraphInfo {
	modules := make([]ModuleInfo, 0, len(a.nodes))

	for _, n := range a.nodes {
		info := ModuleInfo{
			Name:        n.name,
			Imports:     names(n.imports),
			Deferred:    names(n.deferred),
			Exports:     tokens(n.exports),
			Controllers: tokens(n.controllers),
			Global:      n.global,
		}

		for _, b := range n.injector.Bindings() {
			if _, declared := n.providers[b.Key]; !declared {
				continue
			}
			deps := make([]string, len(b.Dependencies))
			for i, dep := range b.Dependencies {
				deps[i] = dep.Key
				if dep.Lazy {
					deps[i] += " (lazy)"
				}
				if dep.Optional {
					deps[i] += " (optional)"
				}
			}
			_, instantiated := n.injector.Instance(b.Key)
			info.Providers = append(info.Providers, ProviderInfo{
				Token:        b.Key,
				Scope:        b.Scope.String(),
				Dependencies: deps,
				Exported:     n.injector.Exports(b.Key),
				Instantiated: instantiated,
			})
		}

		modules = append(modules, info)
	}

	return GraphInfo{Modules: modules}
}

func names(nodes []*node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.name
	}
	return out
}

func tokens(ts []Token) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = string(t)
	}
	return out
}

func (a *Application) PrintGraph() {
	a.FprintGraph(os.Stdout)
}

// FprintGraph renders one table row per provider.
func (a *Application) FprintGraph(w io.Writer) {
	info := a.Graph()
	if len(info.Modules) == 0 {
		_, _ = fmt.Fprintln(w, "(empty application)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Module", "Token", "Scope", "Dependencies", "Exported", "Built"})

	for _, m := range info.Modules {
		module := m.Name
		if m.Global {
			module += " (global)"
		}
		if len(m.Providers) == 0 {
			t.AppendRow(table.Row{module, "-", "-", "-", "-", "-"})
			continue
		}
		for _, p := range m.Providers {
			t.AppendRow(table.Row{
				module,
				p.Token,
				p.Scope,
				strings.Join(p.Dependencies, ", "),
				mark(p.Exported),
				mark(p.Instantiated),
			})
		}
		t.AppendSeparator()
	}

	t.Render()
}

func mark(b bool) string {
	if b {
		return "●"
	}
	return "○"
}

func (a *Application) SprintGraph() string {
	var sb strings.Builder
	a.FprintGraph(&sb)
	return sb.String()
}

func (a *Application) PrintGraphDOT() {
	a.FprintGraphDOT(os.Stdout)
}

// FprintGraphDOT renders modules as clusters and import edges between them.
// Deferred imports are dashed.
func (a *Application) FprintGraphDOT(w io.Writer) {
	info := a.Graph()

	_, _ = fmt.Fprintln(w, "digraph modules {")
	_, _ = fmt.Fprintln(w, "  rankdir=LR;")
	_, _ = fmt.Fprintln(w, "  node [shape=box];")

	for i, m := range info.Modules {
		_, _ = fmt.Fprintf(w, "  subgraph cluster_%d {\n", i)
		_, _ = fmt.Fprintf(w, "    label=%q;\n", m.Name)
		_, _ = fmt.Fprintf(w, "    %q [shape=folder];\n", m.Name)
		for _, p := range m.Providers {
			style := ""
			if p.Instantiated {
				style = ", style=filled, fillcolor=lightblue"
			}
			_, _ = fmt.Fprintf(w, "    %q [label=%q%s];\n", m.Name+"/"+p.Token, escapeLabel(p.Token), style)
		}
		_, _ = fmt.Fprintln(w, "  }")
	}

	_, _ = fmt.Fprintln(w)

	for _, m := range info.Modules {
		for _, imp := range m.Imports {
			_, _ = fmt.Fprintf(w, "  %q -> %q;\n", m.Name, imp)
		}
		for _, imp := range m.Deferred {
			_, _ = fmt.Fprintf(w, "  %q -> %q [style=dashed];\n", m.Name, imp)
		}
	}

	_, _ = fmt.Fprintln(w, "}")
}

func (a *Application) SprintGraphDOT() string {
	var sb strings.Builder
	a.FprintGraphDOT(&sb)
	return sb.String()
}

func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, "*", "")
	if idx := strings.LastIndex(s, "/"); idx != -1 {
		s = s[idx+1:]
	}
	return s
}
