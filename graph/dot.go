package graph

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"sort"
)

// RenderDOT writes g as Graphviz DOT, one box per node labeled
// "identity\nrevision" and one edge per requirement. Node ids are
// fnv32a hashes of the identity string; edges are deduplicated via a
// relation set.
func RenderDOT(g *DependencyGraph) string {
	var b bytes.Buffer
	b.WriteString("digraph { node [shape=box]; ")

	nodes := append([]Node(nil), g.Nodes()...)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Identity < nodes[j].Identity })

	ids := make(map[string]uint32, len(nodes))
	for _, n := range nodes {
		h := nodeHash(n.Identity)
		ids[n.Identity] = h
		fmt.Fprintf(&b, "%d [label=%q]; ", h, label(n))
	}

	seen := map[string]bool{}
	for _, n := range nodes {
		from, ok := ids[n.Identity]
		if !ok {
			continue
		}
		children := append([]string(nil), n.Children...)
		sort.Strings(children)
		for _, c := range children {
			to, ok := ids[c]
			if !ok {
				// A requirement outside the resolved set (e.g. a test-only
				// or Non-goal dependency) has no node to point at.
				continue
			}
			rel := fmt.Sprintf("%d -> %d", from, to)
			if seen[rel] {
				continue
			}
			seen[rel] = true
			b.WriteString(rel + "; ")
		}
	}

	b.WriteString("}")
	return b.String()
}

func nodeHash(identity string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(identity))
	return h.Sum32()
}

func label(n Node) string {
	if n.Revision == "" {
		return n.Identity
	}
	return n.Identity + "\n" + n.Revision
}
