// Package graph is a flat arena-of-nodes value type used only to
// render an already-resolved DependencySet (see resolve.DependencySet)
// as Graphviz DOT for `depforge graph`. It never participates in
// solving — resolve.Resolve is the one load-bearing resolver.
package graph

import "github.com/depforge/depforge/resolve"

// NodeId indexes into a DependencyGraph's arena.
type NodeId int

// Node is one resolved dependency: its pinned revision and the
// identities of the dependencies it requires, also present as nodes in
// the same graph.
type Node struct {
	Identity string
	Revision string
	Children []string
}

// DependencyGraph is a flat arena of resolved nodes plus an identity
// index, built once from a finished resolve.DependencySet and never
// mutated afterward.
type DependencyGraph struct {
	nodes []Node
	index map[string]NodeId
}

// FromSelection builds a DependencyGraph's arena from a finished
// resolution's Selected map and the requirement edges recorded while
// resolving. edges maps each identity to the identities it directly
// requires; callers typically derive this from the same
// retriever.DependencyList lookups the resolver itself performed.
func FromSelection(selected map[string]resolve.Selection, edges map[string][]string) *DependencyGraph {
	g := &DependencyGraph{index: make(map[string]NodeId, len(selected))}
	for id, sel := range selected {
		g.index[id] = NodeId(len(g.nodes))
		g.nodes = append(g.nodes, Node{
			Identity: id,
			Revision: string(sel.Revision),
			Children: edges[id],
		})
	}
	return g
}

// Node returns the arena entry for id, or the zero Node and false if
// id isn't present.
func (g *DependencyGraph) Node(id string) (Node, bool) {
	idx, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[idx], true
}

// Nodes returns every node in arena order (insertion order from
// FromSelection, not sorted — callers that need determinism, like DOT
// rendering, sort themselves).
func (g *DependencyGraph) Nodes() []Node {
	return g.nodes
}
