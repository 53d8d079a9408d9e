// Package graph orders dependency graphs and reports their cycles. It is used
// for provider validation at build time and for lifecycle staging.
package graph

// Graph is a directed graph whose edges point from a node to the nodes it
// depends on. Insertion order is kept so every traversal is deterministic.
// Edges to nodes that were never added are ignored. A Graph is not safe for
// concurrent mutation.
type Graph struct {
	edges map[string][]string
	index map[string]int
	order []string
}

func New() *Graph {
	return &Graph{
		edges: make(map[string][]string),
		index: make(map[string]int),
	}
}

// AddNode declares id with its dependencies. Declaring id again replaces its
// dependencies but keeps its original position.
func (g *Graph) AddNode(id string, deps []string) {
	if _, ok := g.index[id]; !ok {
		g.index[id] = len(g.order)
		g.order = append(g.order, id)
	}
	g.edges[id] = append([]string(nil), deps...)
}

func (g *Graph) Has(id string) bool {
	_, ok := g.index[id]
	return ok
}

func (g *Graph) Len() int {
	return len(g.order)
}

func (g *Graph) Nodes() []string {
	return append([]string(nil), g.order...)
}

// Dependencies returns the known dependencies of id, without duplicates.
func (g *Graph) Dependencies(id string) []string {
	var deps []string
	seen := make(map[string]bool)
	for _, dep := range g.edges[id] {
		if !g.Has(dep) || seen[dep] {
			continue
		}
		seen[dep] = true
		deps = append(deps, dep)
	}
	return deps
}
