package resolve

import (
	"context"
	"testing"

	"github.com/depforge/depforge/depid"
	"github.com/depforge/depforge/retriever"
	"github.com/depforge/depforge/version"
)

// fakeRetriever serves a small fixed dependency graph entirely from
// memory, for exercising Resolve without any network or cache layer.
type fakeRetriever struct {
	versions map[string][]version.Concrete
	deps     map[string]retriever.DependencyList // key: clonepath@rev
}

func (f *fakeRetriever) VersionsFor(ctx context.Context, dep depid.Dependency) ([]version.Concrete, error) {
	return f.versions[dep.ClonePath()], nil
}

func (f *fakeRetriever) DependenciesFor(ctx context.Context, dep depid.Dependency, rev version.PinnedRevision) (retriever.DependencyList, error) {
	return f.deps[dep.ClonePath()+"@"+string(rev)], nil
}

func (f *fakeRetriever) ResolveGitRef(ctx context.Context, dep depid.Dependency, ref string) (version.PinnedRevision, error) {
	return version.PinnedRevision(ref), nil
}

func mustSV(t *testing.T, raw string) version.SemVer {
	t.Helper()
	sv, err := version.ParseSemVer(raw)
	if err != nil {
		t.Fatalf("ParseSemVer(%q): %v", raw, err)
	}
	return sv
}

func TestResolveSimpleChain(t *testing.T) {
	a := depid.NewHosted("github.com", "o", "a")
	b := depid.NewHosted("github.com", "o", "b")

	svA1 := mustSV(t, "1.0.0")
	svB1 := mustSV(t, "1.0.0")
	svB2 := mustSV(t, "1.1.0")

	r := &fakeRetriever{
		versions: map[string][]version.Concrete{
			a.ClonePath(): {{Revision: "1.0.0", SemVer: &svA1}},
			b.ClonePath(): {{Revision: "1.1.0", SemVer: &svB2}, {Revision: "1.0.0", SemVer: &svB1}},
		},
		deps: map[string]retriever.DependencyList{
			a.ClonePath() + "@1.0.0": {
				Revision: "1.0.0",
				Requires: []retriever.Requirement{{Dep: b, Spec: version.AtLeast(mustSV(t, "1.0.0"))}},
			},
			b.ClonePath() + "@1.1.0": {Revision: "1.1.0"},
		},
	}

	ds, err := Resolve(context.Background(), []retriever.Requirement{{Dep: a, Spec: version.Any()}}, r, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := ds.Selected[a.ClonePath()].Revision; got != "1.0.0" {
		t.Fatalf("a resolved to %s, want 1.0.0", got)
	}
	if got := ds.Selected[b.ClonePath()].Revision; got != "1.1.0" {
		t.Fatalf("b resolved to %s, want 1.1.0 (newest satisfying >= 1.0.0)", got)
	}
}

func TestResolveNoVersionSatisfies(t *testing.T) {
	a := depid.NewHosted("github.com", "o", "a")
	sv := mustSV(t, "1.0.0")
	r := &fakeRetriever{
		versions: map[string][]version.Concrete{
			a.ClonePath(): {{Revision: "1.0.0", SemVer: &sv}},
		},
		deps: map[string]retriever.DependencyList{},
	}

	_, err := Resolve(context.Background(), []retriever.Requirement{{Dep: a, Spec: version.Exactly(mustSV(t, "2.0.0"))}}, r, nil)
	if err == nil {
		t.Fatal("expected resolution failure when no candidate satisfies the root spec")
	}
}
