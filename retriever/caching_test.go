package retriever

import (
	"context"
	"log"
	"testing"

	"github.com/depforge/depforge/depid"
	"github.com/depforge/depforge/version"
)

type fakeRemote struct {
	versionCalls int
	depCalls     int
	refCalls     int
}

func (f *fakeRemote) VersionsFor(ctx context.Context, dep depid.Dependency) ([]version.Concrete, error) {
	f.versionCalls++
	sv, _ := version.ParseSemVer("1.0.0")
	return []version.Concrete{{Revision: "abc123", SemVer: &sv}}, nil
}

func (f *fakeRemote) DependenciesFor(ctx context.Context, dep depid.Dependency, rev version.PinnedRevision) (DependencyList, error) {
	f.depCalls++
	return DependencyList{Revision: rev}, nil
}

func (f *fakeRemote) ResolveGitRef(ctx context.Context, dep depid.Dependency, ref string) (version.PinnedRevision, error) {
	f.refCalls++
	return version.PinnedRevision("resolved-" + ref), nil
}

func newTestCaching(t *testing.T) (*Caching, *fakeRemote) {
	t.Helper()
	store, err := OpenBoltStore(t.TempDir(), 0, log.Default())
	if err != nil {
		t.Fatalf("OpenBoltStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	remote := &fakeRemote{}
	return NewCaching(remote, store, func() int64 { return 1000 }), remote
}

func TestCachingVersionsMemoizedAcrossCalls(t *testing.T) {
	c, remote := newTestCaching(t)
	dep := depid.NewHosted("github.com", "owner", "repo")
	ctx := context.Background()

	if _, err := c.VersionsFor(ctx, dep); err != nil {
		t.Fatal(err)
	}
	if _, err := c.VersionsFor(ctx, dep); err != nil {
		t.Fatal(err)
	}
	if remote.versionCalls != 1 {
		t.Fatalf("expected 1 remote call, got %d", remote.versionCalls)
	}
}

func TestCachingDependenciesMemoizedInRun(t *testing.T) {
	c, remote := newTestCaching(t)
	dep := depid.NewHosted("github.com", "owner", "repo")
	ctx := context.Background()

	if _, err := c.DependenciesFor(ctx, dep, "abc123"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.DependenciesFor(ctx, dep, "abc123"); err != nil {
		t.Fatal(err)
	}
	if remote.depCalls != 1 {
		t.Fatalf("expected 1 remote call, got %d", remote.depCalls)
	}
}

func TestCachingGitRefPersists(t *testing.T) {
	c, remote := newTestCaching(t)
	dep := depid.NewHosted("github.com", "owner", "repo")
	ctx := context.Background()

	rev1, err := c.ResolveGitRef(ctx, dep, "main")
	if err != nil {
		t.Fatal(err)
	}
	rev2, err := c.ResolveGitRef(ctx, dep, "main")
	if err != nil {
		t.Fatal(err)
	}
	if rev1 != rev2 {
		t.Fatalf("expected stable resolution, got %s then %s", rev1, rev2)
	}
	if remote.refCalls != 1 {
		t.Fatalf("expected 1 remote call, got %d", remote.refCalls)
	}
}
