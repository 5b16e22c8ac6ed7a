// Package resolve implements a depth-first backtracking search over
// dependency versions: each pick expands into its transitive manifest
// requirements, which narrow the remaining candidates for dependencies
// still unresolved; a dead end unwinds to the most recent choice point
// and tries its next candidate.
package resolve

import (
	"context"

	"github.com/pkg/errors"

	"github.com/depforge/depforge/depid"
	"github.com/depforge/depforge/retriever"
	"github.com/depforge/depforge/version"
	"github.com/depforge/depforge/versionset"
)

// Selection is one resolved pin in a DependencySet.
type Selection struct {
	Dep      depid.Dependency
	Revision version.PinnedRevision
}

// DependencySet is the resolver's working state: a value type so the
// backtracking loop can push/pop snapshots cheaply by copying, rather
// than undoing mutations in place against a shared mutable structure.
type DependencySet struct {
	// Selected holds one Selection per resolved dependency, keyed by
	// clone path for lookup.
	Selected map[string]Selection

	// Unresolved is the queue of dependencies still needing a pick,
	// each paired with the intersected Spec all selectors-so-far have
	// placed on it.
	Unresolved []pending

	// Candidates caches each dependency's known version set once
	// fetched, so repeated narrowing during backtracking doesn't
	// refetch.
	Candidates map[string]*versionset.Set

	Rejected bool
}

type pending struct {
	Dep  depid.Dependency
	Spec version.Spec
}

// Clone returns a deep-enough copy for the resolver to mutate freely
// without disturbing the snapshot backtrack() will fall back to.
func (d DependencySet) Clone() DependencySet {
	sel := make(map[string]Selection, len(d.Selected))
	for k, v := range d.Selected {
		sel[k] = v
	}
	unresolved := append([]pending(nil), d.Unresolved...)
	cands := make(map[string]*versionset.Set, len(d.Candidates))
	for k, v := range d.Candidates {
		cands[k] = v.Clone()
	}
	return DependencySet{Selected: sel, Unresolved: unresolved, Candidates: cands, Rejected: d.Rejected}
}

// frame is one entry on the resolver's backtrack stack: the
// DependencySet as it stood before trying dep, plus the candidate
// queue still to be tried for it.
type frame struct {
	before     DependencySet
	dep        depid.Dependency
	spec       version.Spec
	candidates *versionset.Set
}

// Resolve finds a consistent pin for every transitive dependency of
// root via depth-first backtracking search. existing, if non-nil,
// pins dependencies the caller wants kept unless a conflict forces a
// change (partial-update semantics): a dependency present in existing
// is tried first at its pinned revision before any other candidate.
func Resolve(ctx context.Context, root []retriever.Requirement, r retriever.Retriever, existing map[string]version.PinnedRevision) (*DependencySet, error) {
	ds := DependencySet{
		Selected:   map[string]Selection{},
		Candidates: map[string]*versionset.Set{},
	}
	for _, req := range root {
		ds.Unresolved = append(ds.Unresolved, pending{Dep: req.Dep, Spec: req.Spec})
	}

	var stack []frame
	for {
		if len(ds.Unresolved) == 0 {
			return &ds, nil
		}

		next := ds.Unresolved[0]
		rest := ds.Unresolved[1:]

		if sel, ok := ds.Selected[next.Dep.ClonePath()]; ok {
			if !next.Spec.Satisfies(sel.Revision, nil) {
				if !backtrack(&stack, &ds) {
					return nil, unresolvedError(next, ds.Unresolved)
				}
				continue
			}
			ds.Unresolved = rest
			continue
		}

		cands, err := candidatesFor(ctx, r, &ds, next.Dep, next.Spec)
		if err != nil {
			return nil, errors.Wrapf(err, "listing versions for %s", next.Dep)
		}
		cands.RetainCompatibleWith(next.Spec)
		for _, c := range append([]version.Concrete(nil), cands.All()...) {
			if !c.Satisfies(next.Spec) {
				cands.Remove(c)
			}
		}

		if existing != nil {
			if rev, ok := existing[next.Dep.ClonePath()]; ok {
				cands = preferRevision(cands, rev)
			}
		}

		if cands.Len() == 0 {
			if !backtrack(&stack, &ds) {
				return nil, unresolvedError(next, ds.Unresolved)
			}
			continue
		}

		head, _ := cands.Head()

		stack = append(stack, frame{
			before:     ds.Clone(),
			dep:        next.Dep,
			spec:       next.Spec,
			candidates: cands,
		})

		if err := apply(ctx, r, &ds, next.Dep, head.Revision); err != nil {
			var conflict *IncompatibleRequirementsError
			if errors.As(err, &conflict) {
				if !backtrack(&stack, &ds) {
					return nil, unresolvedError(next, ds.Unresolved)
				}
				continue
			}
			return nil, errors.Wrapf(err, "expanding dependencies of %s@%s", next.Dep, head.Revision)
		}
		ds.Unresolved = rest
	}
}

// unresolvedError builds the UnresolvedDependencies error returned
// once backtracking has exhausted every candidate at every choice
// point still on the stack: head plus whatever remains in rest,
// deduplicated by clone path.
func unresolvedError(head pending, rest []pending) *UnresolvedDependenciesError {
	seen := map[string]bool{head.Dep.ClonePath(): true}
	deps := []depid.Dependency{head.Dep}
	for _, p := range rest {
		if !seen[p.Dep.ClonePath()] {
			seen[p.Dep.ClonePath()] = true
			deps = append(deps, p.Dep)
		}
	}
	return &UnresolvedDependenciesError{Deps: deps}
}

// candidatesFor returns the known version set for dep. A GitRef spec
// bypasses the normal tag listing entirely: the ref is pinned once via
// ResolveGitRef and that single revision becomes the only candidate,
// since a git ref names exactly one commit rather than a range.
// Anything else fetches (and caches) dep's full version list on first
// use within this resolve() call.
func candidatesFor(ctx context.Context, r retriever.Retriever, ds *DependencySet, dep depid.Dependency, spec version.Spec) (*versionset.Set, error) {
	if spec.Kind() == version.KindGitRef {
		rev, err := r.ResolveGitRef(ctx, dep, spec.GitRefName())
		if err != nil {
			return nil, err
		}
		return versionset.New([]version.Concrete{{Revision: rev}}), nil
	}

	if cached, ok := ds.Candidates[dep.ClonePath()]; ok {
		return cached.Clone(), nil
	}
	vs, err := r.VersionsFor(ctx, dep)
	if err != nil {
		return nil, err
	}
	s := versionset.New(vs)
	ds.Candidates[dep.ClonePath()] = s.Clone()
	return s, nil
}

// preferRevision moves the candidate matching rev to the front of s,
// if present, so the backtracking search tries it before disturbing an
// already-satisfied pin (partial-update semantics).
func preferRevision(s *versionset.Set, rev version.PinnedRevision) *versionset.Set {
	all := s.All()
	for i, c := range all {
		if c.Revision == rev {
			reordered := append([]version.Concrete{c}, append(append([]version.Concrete(nil), all[:i]...), all[i+1:]...)...)
			out := versionset.New(nil)
			for _, x := range reordered {
				out.Insert(x)
			}
			return out
		}
	}
	return s
}

// apply picks rev for dep, fetches its manifest requirements, and
// intersects them into ds's unresolved queue. A requirement that
// conflicts with one already pending returns an
// IncompatibleRequirementsError, which the caller is expected to
// recover from by backtracking to the frame just pushed for dep
// rather than treating it as fatal.
func apply(ctx context.Context, r retriever.Retriever, ds *DependencySet, dep depid.Dependency, rev version.PinnedRevision) error {
	ds.Selected[dep.ClonePath()] = Selection{Dep: dep, Revision: rev}

	dl, err := r.DependenciesFor(ctx, dep, rev)
	if err != nil {
		return err
	}
	for _, req := range dl.Requires {
		if err := mergeSpec(ds, req); err != nil {
			return err
		}
	}
	return nil
}

// mergeSpec intersects req's spec with any spec already pending for
// the same dependency, so the unresolved queue never carries two
// independent constraints on one identity forward unmerged; otherwise
// it appends req as a new pending entry. It returns
// IncompatibleRequirementsError when the intersection is empty.
func mergeSpec(ds *DependencySet, req retriever.Requirement) error {
	for i, p := range ds.Unresolved {
		if p.Dep.Equal(req.Dep) {
			merged, ok := version.Intersect(p.Spec, req.Spec)
			if !ok {
				return &IncompatibleRequirementsError{Dep: req.Dep, SpecA: p.Spec, SpecB: req.Spec}
			}
			ds.Unresolved[i].Spec = merged
			return nil
		}
	}
	ds.Unresolved = append(ds.Unresolved, pending{Dep: req.Dep, Spec: req.Spec})
	return nil
}

// backtrack pops the most recent frame, advances that frame's
// candidate queue past the choice that led to failure, and restores
// the DependencySet it captured with the next candidate queued for
// retry. It reports false when the stack is exhausted, meaning
// resolution has failed outright.
func backtrack(stack *[]frame, ds *DependencySet) bool {
	for len(*stack) > 0 {
		f := (*stack)[len(*stack)-1]
		*stack = (*stack)[:len(*stack)-1]

		if head, ok := f.candidates.Head(); ok {
			f.candidates.Remove(head)
		}
		if f.candidates.Len() == 0 {
			continue
		}

		*ds = f.before.Clone()
		ds.Unresolved = append([]pending{{Dep: f.dep, Spec: f.spec}}, ds.Unresolved...)
		ds.Candidates[f.dep.ClonePath()] = f.candidates.Clone()
		return true
	}
	return false
}
