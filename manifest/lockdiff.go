package manifest

import (
	"sort"

	"github.com/depforge/depforge/version"
)

// LockDiff summarizes how two locks differ, in terms of identity-keyed
// pins rather than full project structures.
type LockDiff struct {
	Added   []string
	Removed []string
	Changed []ChangedEntry
}

// ChangedEntry records a dependency whose pinned revision moved.
type ChangedEntry struct {
	Identity string
	From, To version.PinnedRevision
}

// DiffLocks compares before and after, returning nil if there are no
// differences.
func DiffLocks(before, after *Lock) *LockDiff {
	bm := map[string]version.PinnedRevision{}
	if before != nil {
		bm = before.AsMap()
	}
	am := map[string]version.PinnedRevision{}
	if after != nil {
		am = after.AsMap()
	}

	var d LockDiff
	for id, rev := range am {
		if brev, ok := bm[id]; !ok {
			d.Added = append(d.Added, id)
		} else if brev != rev {
			d.Changed = append(d.Changed, ChangedEntry{Identity: id, From: brev, To: rev})
		}
	}
	for id := range bm {
		if _, ok := am[id]; !ok {
			d.Removed = append(d.Removed, id)
		}
	}

	if len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0 {
		return nil
	}

	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Slice(d.Changed, func(i, j int) bool { return d.Changed[i].Identity < d.Changed[j].Identity })
	return &d
}
