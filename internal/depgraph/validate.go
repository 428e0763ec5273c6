// File: internal/depgraph/validate.go
// Brief: Cycle detection and stable execution layering.

package depgraph

// Validate checks the graph is a DAG and computes execution layers: layer 0
// holds all nodes with no dependencies, layer k holds nodes whose every
// predecessor sits in an earlier layer. Nodes within a layer are independent
// by construction and eligible for concurrent execution. Layer membership is
// sorted by node identity so the same graph always yields the same layers.
func Validate(g *Graph) ([][]NodeID, error) {
	if cycle := findCycle(g); len(cycle) > 0 {
		return nil, &CycleDetectedError{Path: cycle}
	}
	return peelLayers(g), nil
}

// findCycle runs a three-color DFS and, on the first back-edge, returns the
// cycle extracted from the recursion stack. Roots are visited in sorted order
// so the reported cycle is deterministic for a given graph.
func findCycle(g *Graph) []NodeID {
	const (
		white = iota // unvisited
		gray         // on the recursion stack
		black        // fully explored
	)
	color := make(map[NodeID]int, len(g.nodes))
	var stack []NodeID
	var cycle []NodeID

	var dfs func(NodeID) bool
	dfs = func(id NodeID) bool {
		color[id] = gray
		stack = append(stack, id)
		for _, next := range g.dependents[id] {
			switch color[next] {
			case white:
				if dfs(next) {
					return true
				}
			case gray:
				// Back-edge: the cycle is the stack suffix starting at next.
				for i := range stack {
					if stack[i] == next {
						cycle = append([]NodeID(nil), stack[i:]...)
						return true
					}
				}
				cycle = []NodeID{next, id}
				return true
			}
		}
		color[id] = black
		stack = stack[:len(stack)-1]
		return false
	}

	roots := append([]NodeID(nil), g.order...)
	sortIDs(roots)
	for _, id := range roots {
		if color[id] != white {
			continue
		}
		if dfs(id) {
			return cycle
		}
	}
	return nil
}

// peelLayers is repeated Kahn's-algorithm peeling: remove all zero in-degree
// nodes as one layer, decrement their dependents, repeat. Only valid on an
// acyclic graph.
func peelLayers(g *Graph) [][]NodeID {
	inDegree := make(map[NodeID]int, len(g.nodes))
	for id := range g.nodes {
		inDegree[id] = len(g.deps[id])
	}

	var wave []NodeID
	for id, deg := range inDegree {
		if deg == 0 {
			wave = append(wave, id)
		}
	}
	sortIDs(wave)

	var layers [][]NodeID
	for len(wave) > 0 {
		layers = append(layers, wave)
		var next []NodeID
		for _, id := range wave {
			for _, dep := range g.dependents[id] {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		sortIDs(next)
		wave = next
	}
	return layers
}
