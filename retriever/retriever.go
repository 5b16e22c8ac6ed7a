// Package retriever fetches version and dependency metadata for a
// Dependency, and memoizes it across resolver runs: a three-call
// surface (list versions, list deps-of-a-revision, resolve a symbolic
// git ref) backed by an on-disk cache keyed by dependency identity.
package retriever

import (
	"context"

	"github.com/depforge/depforge/depid"
	"github.com/depforge/depforge/version"
)

// DependencyList is the declared requirements of one dependency at one
// resolved revision, as read from its manifest.
type DependencyList struct {
	Revision version.PinnedRevision
	Requires []Requirement
}

// Requirement is one manifest-declared edge: another Dependency plus
// the Spec it must satisfy.
type Requirement struct {
	Dep  depid.Dependency
	Spec version.Spec
}

// Retriever is the resolver's view onto remote source metadata. Every
// method may hit the network on a cache miss; implementations are
// expected to memoize aggressively since the resolver calls these
// repeatedly while backtracking.
type Retriever interface {
	// VersionsFor lists every version (tag, branch or otherwise)
	// known for dep, newest first.
	VersionsFor(ctx context.Context, dep depid.Dependency) ([]version.Concrete, error)

	// DependenciesFor returns the manifest requirements declared at
	// rev for dep.
	DependenciesFor(ctx context.Context, dep depid.Dependency, rev version.PinnedRevision) (DependencyList, error)

	// ResolveGitRef pins an arbitrary git ref (branch, tag, or
	// abbreviated SHA) to a full revision, for GitRef-kind specs.
	ResolveGitRef(ctx context.Context, dep depid.Dependency, ref string) (version.PinnedRevision, error)
}
