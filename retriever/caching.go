package retriever

import (
	"context"
	"fmt"

	"github.com/depforge/depforge/depid"
	"github.com/depforge/depforge/version"
)

// Remote is the network-facing half of Retriever: a source that always
// consults the actual VCS/host, with no memoization of its own. The
// `source` package's Coordinator implements this; Caching wraps it
// with a two-tier memoization scheme: an in-memory cache scoped to one
// resolver invocation, backed by a persistent on-disk cache keyed by
// dependency identity.
type Remote interface {
	VersionsFor(ctx context.Context, dep depid.Dependency) ([]version.Concrete, error)
	DependenciesFor(ctx context.Context, dep depid.Dependency, rev version.PinnedRevision) (DependencyList, error)
	ResolveGitRef(ctx context.Context, dep depid.Dependency, ref string) (version.PinnedRevision, error)
}

// NowFunc returns the current unix time; injected so callers can
// control cache freshness deterministically in tests.
type NowFunc func() int64

// Caching is a Retriever that serves from the durable BoltStore and only
// calls through to the Remote on a miss, persisting the result there.
// DependenciesFor additionally consults and fills an in-memory run cache
// ahead of the BoltStore; VersionsFor and ResolveGitRef do not use it.
type Caching struct {
	remote Remote
	store  *BoltStore
	run    runCache
	now    NowFunc
}

// NewCaching builds a Caching retriever over remote, memoizing
// dependency lists in a per-run radix tree and versions/git-refs in
// store.
func NewCaching(remote Remote, store *BoltStore, now NowFunc) *Caching {
	return &Caching{remote: remote, store: store, run: newRunCache(), now: now}
}

func (c *Caching) VersionsFor(ctx context.Context, dep depid.Dependency) ([]version.Concrete, error) {
	if vs, ok := c.store.getVersions(dep); ok {
		return vs, nil
	}
	vs, err := c.remote.VersionsFor(ctx, dep)
	if err != nil {
		return nil, err
	}
	c.store.putVersions(dep, vs, c.now())
	return vs, nil
}

func (c *Caching) DependenciesFor(ctx context.Context, dep depid.Dependency, rev version.PinnedRevision) (DependencyList, error) {
	key := fmt.Sprintf("%s@%s", dep.ClonePath(), rev)
	if dl, ok := c.run.Get(key); ok {
		return dl, nil
	}
	if dl, ok := c.store.getDependencies(dep, rev); ok {
		c.run.Insert(key, dl)
		return dl, nil
	}
	dl, err := c.remote.DependenciesFor(ctx, dep, rev)
	if err != nil {
		return DependencyList{}, err
	}
	c.store.putDependencies(dep, rev, dl)
	c.run.Insert(key, dl)
	return dl, nil
}

func (c *Caching) ResolveGitRef(ctx context.Context, dep depid.Dependency, ref string) (version.PinnedRevision, error) {
	if rev, ok := c.store.getGitRef(dep, ref); ok {
		return rev, nil
	}
	rev, err := c.remote.ResolveGitRef(ctx, dep, ref)
	if err != nil {
		return "", err
	}
	c.store.putGitRef(dep, ref, rev)
	return rev, nil
}
