package graph

// Cycles returns one closed path per strongly connected component that
// contains a cycle, such as [a b a]. A node depending on itself yields [a a].
// Paths start at the component member added first.
func (g *Graph) Cycles() [][]string {
	var paths [][]string
	for _, component := range g.components() {
		if len(component) == 1 && !g.dependsOn(component[0], component[0]) {
			continue
		}
		paths = append(paths, g.closedPath(component))
	}
	return paths
}

func (g *Graph) dependsOn(from, to string) bool {
	for _, dep := range g.edges[from] {
		if dep == to {
			return true
		}
	}
	return false
}

// components is Tarjan's algorithm over the known nodes.
func (g *Graph) components() [][]string {
	var (
		counter int
		stack   []string
		result  [][]string
	)
	index := make(map[string]int, len(g.order))
	low := make(map[string]int, len(g.order))
	onStack := make(map[string]bool, len(g.order))

	var visit func(id string)
	visit = func(id string) {
		index[id] = counter
		low[id] = counter
		counter++
		stack = append(stack, id)
		onStack[id] = true

		for _, dep := range g.Dependencies(id) {
			if _, seen := index[dep]; !seen {
				visit(dep)
				low[id] = min(low[id], low[dep])
			} else if onStack[dep] {
				low[id] = min(low[id], index[dep])
			}
		}

		if low[id] != index[id] {
			return
		}
		var component []string
		for {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[top] = false
			component = append(component, top)
			if top == id {
				break
			}
		}
		result = append(result, component)
	}

	for _, id := range g.order {
		if _, seen := index[id]; !seen {
			visit(id)
		}
	}
	return result
}

// closedPath walks the component from its earliest member back to itself.
func (g *Graph) closedPath(component []string) []string {
	members := make(map[string]bool, len(component))
	start := component[0]
	for _, id := range component {
		members[id] = true
		if g.index[id] < g.index[start] {
			start = id
		}
	}

	visited := make(map[string]bool)
	var path []string

	var walk func(id string) bool
	walk = func(id string) bool {
		path = append(path, id)
		visited[id] = true
		for _, dep := range g.Dependencies(id) {
			if dep == start {
				path = append(path, start)
				return true
			}
			if members[dep] && !visited[dep] && walk(dep) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}

	walk(start)
	return path
}
