package graph

import (
	"strings"
	"testing"

	"github.com/depforge/depforge/resolve"
)

func TestRenderDOTIncludesNodesAndEdges(t *testing.T) {
	selected := map[string]resolve.Selection{
		"github.com/a/a": {Revision: "v1.0.0"},
		"github.com/b/b": {Revision: "v2.0.0"},
	}
	edges := map[string][]string{
		"github.com/a/a": {"github.com/b/b"},
	}

	g := FromSelection(selected, edges)
	out := RenderDOT(g)

	if !strings.HasPrefix(out, "digraph {") {
		t.Fatalf("expected DOT digraph header, got: %s", out)
	}
	if !strings.Contains(out, `github.com/a/a\nv1.0.0`) {
		t.Fatalf("expected node label for a, got: %s", out)
	}
	if !strings.Contains(out, "->") {
		t.Fatalf("expected at least one edge, got: %s", out)
	}
}

func TestRenderDOTSkipsEdgesOutsideResolvedSet(t *testing.T) {
	selected := map[string]resolve.Selection{
		"github.com/a/a": {Revision: "v1.0.0"},
	}
	edges := map[string][]string{
		"github.com/a/a": {"github.com/unresolved/dep"},
	}

	g := FromSelection(selected, edges)
	out := RenderDOT(g)
	if strings.Contains(out, "->") {
		t.Fatalf("expected no edges when target isn't resolved, got: %s", out)
	}
}
