// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package manifest

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/depforge/depforge/depid"
	"github.com/depforge/depforge/version"
)

// LockEntry is one resolved pin, as written to the lockfile.
type LockEntry struct {
	Kind     Kind
	Dep      depid.Dependency
	Revision version.PinnedRevision
}

// Lock is the full set of resolved pins.
type Lock struct {
	Entries []LockEntry
}

// ParseLock reads a lockfile in the `<kind> "<identity>" "<revision>"`
// grammar.
func ParseLock(r io.Reader) (*Lock, error) {
	sc := bufio.NewScanner(r)
	var l Lock
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		fields, err := splitDirective(raw)
		if err != nil {
			return nil, &ParseError{Line: line, Text: raw, Reason: err.Error()}
		}
		if len(fields) != 3 {
			return nil, &ParseError{Line: line, Text: raw, Reason: "expected '<kind> \"<identity>\" \"<revision>\"'"}
		}

		kind := Kind(fields[0])
		identity, err := strconv.Unquote(fields[1])
		if err != nil {
			return nil, &ParseError{Line: line, Text: raw, Reason: "identity must be a quoted string"}
		}
		rev, err := strconv.Unquote(fields[2])
		if err != nil {
			return nil, &ParseError{Line: line, Text: raw, Reason: "revision must be a quoted string"}
		}

		var dep depid.Dependency
		if kind == KindGitHub {
			owner, repo, ok := strings.Cut(identity, "/")
			if !ok {
				return nil, &ParseError{Line: line, Text: raw, Reason: "github identity must be \"owner/repo\""}
			}
			dep = depid.NewHosted("github.com", owner, repo)
		} else {
			dep = depid.NewRawGit(identity)
		}

		l.Entries = append(l.Entries, LockEntry{Kind: kind, Dep: dep, Revision: version.PinnedRevision(rev)})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "reading lockfile")
	}
	return &l, nil
}

// Write renders l in stable (identity-sorted) order, so that re-resolving
// an unchanged dependency set round-trips byte-for-byte.
func (l *Lock) Write(w io.Writer) error {
	sorted := append([]LockEntry(nil), l.Entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Dep.String() < sorted[j].Dep.String() })

	for _, e := range sorted {
		identity := e.Dep.String()
		if e.Kind == KindGitHub {
			identity = e.Dep.Owner() + "/" + e.Dep.Repo()
		}
		line := fmt.Sprintf("%s %q %q\n", e.Kind, identity, string(e.Revision))
		if _, err := io.WriteString(w, line); err != nil {
			return errors.Wrap(err, "writing lockfile")
		}
	}
	return nil
}

// AsMap returns the lock's resolved mapping keyed by dependency identity
// string, for comparison against a freshly computed resolver result.
func (l *Lock) AsMap() map[string]version.PinnedRevision {
	m := make(map[string]version.PinnedRevision, len(l.Entries))
	for _, e := range l.Entries {
		m[e.Dep.String()] = e.Revision
	}
	return m
}
