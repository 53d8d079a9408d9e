package graph

import (
	"errors"
	"sort"
)

var ErrCycleDetected = errors.New("graph: cycle detected")

// Levels groups nodes by dependency depth. Level 0 holds nodes without
// dependencies; a node sits one level above its deepest dependency, so nodes
// sharing a level never depend on each other. Within a level nodes keep
// insertion order.
func (g *Graph) Levels() ([][]string, error) {
	pending := make(map[string]int, len(g.order))
	dependents := make(map[string][]string, len(g.order))

	for _, id := range g.order {
		deps := g.Dependencies(id)
		pending[id] = len(deps)
		for _, dep := range deps {
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var current []string
	for _, id := range g.order {
		if pending[id] == 0 {
			current = append(current, id)
		}
	}

	var levels [][]string
	placed := 0
	for len(current) > 0 {
		levels = append(levels, current)
		placed += len(current)

		var next []string
		for _, id := range current {
			for _, dependent := range dependents[id] {
				pending[dependent]--
				if pending[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		sort.Slice(next, func(i, j int) bool {
			return g.index[next[i]] < g.index[next[j]]
		})
		current = next
	}

	if placed != len(g.order) {
		return nil, ErrCycleDetected
	}
	return levels, nil
}

// Sort returns the nodes with every node after its dependencies.
func (g *Graph) Sort() ([]string, error) {
	levels, err := g.Levels()
	if err != nil {
		return nil, err
	}
	sorted := make([]string, 0, len(g.order))
	for _, level := range levels {
		sorted = append(sorted, level...)
	}
	return sorted, nil
}
