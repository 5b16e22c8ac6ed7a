// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package versionset implements the ordered candidate container the
// resolver narrows on each backtracking step, for a single dependency.
// It keeps the whole admissible set around (rather than lazily
// streaming it) so that RetainCompatibleWith can binary-search rather
// than re-list.
package versionset

import (
	"sort"

	"github.com/depforge/depforge/version"
)

// Set is an ordered sequence of version.Concrete, sorted ascending by
// version.Concrete.Less (so index 0 is always the current best pick).
type Set struct {
	vs []version.Concrete
}

// New builds a Set from candidates, sorting them into resolver order.
func New(candidates []version.Concrete) *Set {
	s := &Set{vs: append([]version.Concrete(nil), candidates...)}
	sort.Slice(s.vs, func(i, j int) bool { return s.vs[i].Less(s.vs[j]) })
	return s
}

// Len reports the number of remaining candidates.
func (s *Set) Len() int { return len(s.vs) }

// Head returns the current best candidate, or the zero value and false if
// the set is empty.
func (s *Set) Head() (version.Concrete, bool) {
	if len(s.vs) == 0 {
		return version.Concrete{}, false
	}
	return s.vs[0], true
}

// All returns the full remaining candidate slice, in resolver order. The
// caller must not mutate it.
func (s *Set) All() []version.Concrete { return s.vs }

// Insert adds c in sorted position. O(log n) search, O(n) shift.
func (s *Set) Insert(c version.Concrete) {
	i := sort.Search(len(s.vs), func(i int) bool { return !s.vs[i].Less(c) })
	s.vs = append(s.vs, version.Concrete{})
	copy(s.vs[i+1:], s.vs[i:])
	s.vs[i] = c
}

// Remove deletes the first candidate equal to c (by revision), if present.
func (s *Set) Remove(c version.Concrete) {
	i := sort.Search(len(s.vs), func(i int) bool { return !s.vs[i].Less(c) })
	if i < len(s.vs) && s.vs[i].Revision == c.Revision {
		s.vs = append(s.vs[:i], s.vs[i+1:]...)
	}
}

// Contains reports whether a candidate with rev is present.
func (s *Set) Contains(rev version.PinnedRevision) bool {
	for _, c := range s.vs {
		if c.Revision == rev {
			return true
		}
	}
	return false
}

// RetainCompatibleWith narrows the set in place to candidates admitted by
// spec. For AtLeast/CompatibleWith this binary-searches the
// semantic-version prefix of the (sorted-descending-among-semantic) slice
// for the admissible bounds; Exactly keeps the semantic candidates equal
// to its ref; Any and GitRef are no-ops. Non-semantic
// (branch-like) candidates are always retained as fallbacks, regardless of
// numeric bounds.
func (s *Set) RetainCompatibleWith(spec version.Spec) {
	switch spec.Kind() {
	case version.KindAny, version.KindGitRef:
		return
	case version.KindExactly:
		out := s.vs[:0:0]
		for _, c := range s.vs {
			if c.SemVer == nil || c.SemVer.Equal(spec.Ref()) {
				out = append(out, c)
			}
		}
		s.vs = out
		return
	}

	lo, hiExclusive, hasHi := bounds(spec)

	nSem := sort.Search(len(s.vs), func(i int) bool { return s.vs[i].SemVer == nil })
	start := 0
	if hasHi {
		start = sort.Search(nSem, func(i int) bool { return s.vs[i].SemVer.Less(hiExclusive) })
	}
	end := sort.Search(nSem, func(i int) bool { return s.vs[i].SemVer.Less(lo) })
	if end < start {
		end = start
	}
	// Non-semantic candidates (s.vs[nSem:]) are kept as fallbacks
	// unconditionally; satisfaction is re-checked by the caller
	// against the real spec before a pick is committed.
	out := append(append([]version.Concrete(nil), s.vs[start:end]...), s.vs[nSem:]...)
	s.vs = out
}

// bounds returns the inclusive lower bound and, if hasHi, the exclusive
// upper bound a numeric spec constrains candidates to.
func bounds(spec version.Spec) (lo version.SemVer, hiExclusive version.SemVer, hasHi bool) {
	switch spec.Kind() {
	case version.KindAtLeast:
		return spec.Ref(), version.SemVer{}, false
	case version.KindCompatibleWith:
		r := spec.Ref()
		if r.Major() > 0 {
			hi, _ := version.ParseSemVer(upperBound(r.Major()+1, 0, 0))
			return r, hi, true
		}
		hi, _ := version.ParseSemVer(upperBound(0, r.Minor()+1, 0))
		return r, hi, true
	default:
		return version.SemVer{}, version.SemVer{}, false
	}
}

func upperBound(major, minor, patch uint64) string {
	return itoa(major) + "." + itoa(minor) + "." + itoa(patch)
}

func itoa(u uint64) string {
	if u == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for u > 0 {
		i--
		buf[i] = byte('0' + u%10)
		u /= 10
	}
	return string(buf[i:])
}

// RetainOnly narrows the set to the single candidate head. The resolver
// does not call it; it narrows with RetainCompatibleWith and Remove.
func (s *Set) RetainOnly(head version.Concrete) {
	s.vs = []version.Concrete{head}
}

// Clone returns an independent copy, used when forking the search tree.
func (s *Set) Clone() *Set {
	return &Set{vs: append([]version.Concrete(nil), s.vs...)}
}
