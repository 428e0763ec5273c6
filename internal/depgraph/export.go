// File: internal/depgraph/export.go
// Brief: Graphviz DOT and Mermaid export for plan diagnostics.

package depgraph

import (
	"fmt"
	"sort"
	"strings"
)

// DOT renders the graph as Graphviz DOT text. Edges point from dependency to
// dependent, matching execution direction.
func (g *Graph) DOT() string {
	var b strings.Builder
	b.WriteString("digraph readyplan {\n")
	b.WriteString("  rankdir=LR;\n")

	aliases := make(map[NodeID]string, len(g.nodes))
	for i, id := range sortedNodeIDs(g) {
		alias := fmt.Sprintf("n%d", i)
		aliases[id] = alias
		label := escapeQuotes(id.String())
		n := g.nodes[id]
		label += "\\n(" + escapeQuotes(string(n.Spec.Condition.Type)) + ")"
		b.WriteString(fmt.Sprintf("  %s [label=\"%s\"];\n", alias, label))
	}
	for _, e := range sortedEdges(g) {
		b.WriteString(fmt.Sprintf("  %s -> %s;\n", aliases[e.From], aliases[e.To]))
	}
	b.WriteString("}\n")
	return b.String()
}

// Mermaid renders the graph as Mermaid flowchart text.
func (g *Graph) Mermaid() string {
	var b strings.Builder
	b.WriteString("graph TD\n")

	aliases := make(map[NodeID]string, len(g.nodes))
	for i, id := range sortedNodeIDs(g) {
		alias := fmt.Sprintf("n%d", i)
		aliases[id] = alias
		n := g.nodes[id]
		label := escapeQuotes(id.String()) + "<br/>(" + escapeQuotes(string(n.Spec.Condition.Type)) + ")"
		b.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", alias, label))
	}
	for _, e := range sortedEdges(g) {
		b.WriteString(fmt.Sprintf("    %s --> %s\n", aliases[e.From], aliases[e.To]))
	}
	return b.String()
}

func sortedNodeIDs(g *Graph) []NodeID {
	ids := append([]NodeID(nil), g.order...)
	sortIDs(ids)
	return ids
}

func sortedEdges(g *Graph) []Edge {
	edges := g.Edges()
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From.String() < edges[j].From.String()
		}
		return edges[i].To.String() < edges[j].To.String()
	})
	return edges
}

func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, "\"", "\\\"")
}
