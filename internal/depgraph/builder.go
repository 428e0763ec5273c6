// File: internal/depgraph/builder.go
// Brief: Graph accumulation: nodes first, then edges, validation deferred.

package depgraph

import "sort"

// Graph holds the declared nodes and edges. It is unordered until Validate
// assigns layers; acyclicity is not checked during construction so callers
// can declare in bulk.
type Graph struct {
	nodes map[NodeID]*Node
	order []NodeID // insertion order, for stable iteration before validation
	edges []Edge

	deps       map[NodeID][]NodeID // to -> froms
	dependents map[NodeID][]NodeID // from -> tos
}

// Builder accumulates nodes and edges for one Graph.
type Builder struct {
	g *Graph
}

// NewBuilder returns an empty graph builder.
func NewBuilder() *Builder {
	return &Builder{g: &Graph{
		nodes:      map[NodeID]*Node{},
		deps:       map[NodeID][]NodeID{},
		dependents: map[NodeID][]NodeID{},
	}}
}

// AddNode registers a declared resource. The spec is validated eagerly so a
// malformed condition fails here, long before any probe runs. Duplicate
// identities (same kind+name+namespace) are rejected.
func (b *Builder) AddNode(id NodeID, spec DependencySpec) (*Node, error) {
	if _, ok := b.g.nodes[id]; ok {
		return nil, &DuplicateNodeError{ID: id}
	}
	if err := spec.Validate(); err != nil {
		return nil, &InvalidSpecError{ID: id, Err: err}
	}
	n := &Node{ID: id, Spec: spec, State: StatePending}
	b.g.nodes[id] = n
	b.g.order = append(b.g.order, id)
	return n, nil
}

// AddEdge declares that to depends on from. Only endpoint existence is
// checked; cycles are caught by Validate.
func (b *Builder) AddEdge(from, to NodeID) error {
	if _, ok := b.g.nodes[from]; !ok {
		return &UnknownNodeError{ID: from}
	}
	if _, ok := b.g.nodes[to]; !ok {
		return &UnknownNodeError{ID: to}
	}
	b.g.edges = append(b.g.edges, Edge{From: from, To: to})
	b.g.deps[to] = append(b.g.deps[to], from)
	b.g.dependents[from] = append(b.g.dependents[from], to)
	return nil
}

// Graph returns the accumulated graph. The builder must not be used after
// this call.
func (b *Builder) Graph() *Graph {
	g := b.g
	for id := range g.deps {
		sortIDs(g.deps[id])
	}
	for id := range g.dependents {
		sortIDs(g.dependents[id])
	}
	return g
}

// Len returns the number of declared nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Node looks up a node by identity.
func (g *Graph) Node(id NodeID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in declaration order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Edges returns the declared edges.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// DependenciesOf returns the direct predecessors of id, sorted.
func (g *Graph) DependenciesOf(id NodeID) []NodeID {
	return append([]NodeID(nil), g.deps[id]...)
}

// DependentsOf returns the direct successors of id, sorted.
func (g *Graph) DependentsOf(id NodeID) []NodeID {
	return append([]NodeID(nil), g.dependents[id]...)
}

func sortIDs(ids []NodeID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}
