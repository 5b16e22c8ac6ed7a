package resolve

import (
	"fmt"

	"github.com/depforge/depforge/depid"
	"github.com/depforge/depforge/version"
)

// IncompatibleRequirementsError reports that two specs placed on the
// same dependency by different selectors admit no version in common.
// It is recoverable: the resolver backtracks to the selector that
// introduced the conflict and tries its next candidate.
type IncompatibleRequirementsError struct {
	Dep         depid.Dependency
	SpecA, SpecB version.Spec
}

func (e *IncompatibleRequirementsError) Error() string {
	return fmt.Sprintf("incompatible requirements on %s: %s and %s admit no common version", e.Dep, e.SpecA, e.SpecB)
}

// RequiredVersionNotFoundError reports that no known version of Dep
// satisfies Spec.
type RequiredVersionNotFoundError struct {
	Dep  depid.Dependency
	Spec version.Spec
}

func (e *RequiredVersionNotFoundError) Error() string {
	return fmt.Sprintf("no version of %s satisfies %s", e.Dep, e.Spec)
}

// TaggedVersionNotFoundError reports that Dep has no tagged (semver)
// versions at all, only branch-like revisions.
type TaggedVersionNotFoundError struct {
	Dep depid.Dependency
}

func (e *TaggedVersionNotFoundError) Error() string {
	return fmt.Sprintf("%s has no tagged versions", e.Dep)
}

// UnresolvedDependenciesError reports that backtracking exhausted
// every candidate at every choice point still on the stack, leaving
// Deps with no consistent pin.
type UnresolvedDependenciesError struct {
	Deps []depid.Dependency
}

func (e *UnresolvedDependenciesError) Error() string {
	names := make([]string, len(e.Deps))
	for i, d := range e.Deps {
		names[i] = d.String()
	}
	return fmt.Sprintf("unresolved dependencies: %v", names)
}
