// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package manifest parses the line-oriented manifest and lockfile
// grammar:
//
//	<kind> "<identity>" <spec>
package manifest

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/depforge/depforge/depid"
	"github.com/depforge/depforge/version"
)

// Kind is the manifest directive's dependency kind.
type Kind string

const (
	KindGit    Kind = "git"
	KindGitHub Kind = "github"
	KindBinary Kind = "binary"
)

// Entry is one parsed manifest directive.
type Entry struct {
	Kind Kind
	Dep  depid.Dependency
	Spec version.Spec
	// Line is the 1-based source line, kept for diagnostics.
	Line int
}

// ParseError reports a manifest or lockfile syntax error.
type ParseError struct {
	Line   int
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Reason, e.Text)
}

// Manifest is the parsed root manifest: the public declarations plus an
// optional private-manifest overlay, already merged.
type Manifest struct {
	Entries []Entry
}

// Parse reads a manifest from r. Duplicate identities within the stream
// are a parse error.
func Parse(r io.Reader) ([]Entry, error) {
	sc := bufio.NewScanner(r)
	var entries []Entry
	seen := map[string]int{}

	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}

		e, err := parseLine(raw, line)
		if err != nil {
			return nil, err
		}

		key := identityKey(e)
		if prev, ok := seen[key]; ok {
			return nil, &ParseError{Line: line, Text: raw, Reason: fmt.Sprintf("duplicate identity, first declared on line %d", prev)}
		}
		seen[key] = line

		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "reading manifest")
	}
	return entries, nil
}

func identityKey(e Entry) string {
	return string(e.Kind) + ":" + e.Dep.String()
}

// ParseAndMerge reads the public manifest from pub and, if priv is
// non-nil, the sibling private manifest, erroring if any identity is
// declared in both.
func ParseAndMerge(pub io.Reader, priv io.Reader) (*Manifest, error) {
	pubEntries, err := Parse(pub)
	if err != nil {
		return nil, errors.Wrap(err, "parsing manifest")
	}
	if priv == nil {
		return &Manifest{Entries: pubEntries}, nil
	}

	privEntries, err := Parse(priv)
	if err != nil {
		return nil, errors.Wrap(err, "parsing private manifest")
	}

	seen := make(map[string]bool, len(pubEntries))
	for _, e := range pubEntries {
		seen[identityKey(e)] = true
	}
	for _, e := range privEntries {
		if seen[identityKey(e)] {
			return nil, errors.Errorf("identity %s declared in both manifest and private manifest", e.Dep)
		}
	}

	all := append(append([]Entry(nil), pubEntries...), privEntries...)
	return &Manifest{Entries: all}, nil
}

func parseLine(raw string, line int) (Entry, error) {
	fields, err := splitDirective(raw)
	if err != nil {
		return Entry{}, &ParseError{Line: line, Text: raw, Reason: err.Error()}
	}
	if len(fields) < 2 {
		return Entry{}, &ParseError{Line: line, Text: raw, Reason: "expected '<kind> \"<identity>\" <spec>'"}
	}

	kind := Kind(fields[0])
	switch kind {
	case KindGit, KindGitHub, KindBinary:
	default:
		return Entry{}, &ParseError{Line: line, Text: raw, Reason: "unknown dependency kind " + strconv.Quote(fields[0])}
	}

	identity, err := strconv.Unquote(fields[1])
	if err != nil {
		return Entry{}, &ParseError{Line: line, Text: raw, Reason: "identity must be a quoted string"}
	}

	var dep depid.Dependency
	if kind == KindGitHub {
		owner, repo, ok := strings.Cut(identity, "/")
		if !ok {
			return Entry{}, &ParseError{Line: line, Text: raw, Reason: "github identity must be \"owner/repo\""}
		}
		dep = depid.NewHosted("github.com", owner, repo)
	} else {
		dep = depid.NewRawGit(identity)
	}

	specText := ""
	if len(fields) > 2 {
		specText = strings.Join(fields[2:], " ")
	}
	spec, err := version.ParseSpec(specText)
	if err != nil {
		return Entry{}, &ParseError{Line: line, Text: raw, Reason: err.Error()}
	}

	return Entry{Kind: kind, Dep: dep, Spec: spec, Line: line}, nil
}

// splitDirective splits a directive line into its whitespace-delimited
// fields, respecting double-quoted segments (so a quoted identity or git
// ref containing a space survives intact).
func splitDirective(raw string) ([]string, error) {
	var fields []string
	var cur strings.Builder
	inQuote := false
	flush := func() {
		if cur.Len() > 0 {
			fields = append(fields, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == '"':
			cur.WriteByte(c)
			inQuote = !inQuote
		case c == ' ' && !inQuote:
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	if inQuote {
		return nil, errors.New("unterminated quoted string")
	}
	flush()
	return fields, nil
}

// Format renders a single entry back to manifest grammar text: the
// directive kind, the quoted identity and, if non-empty, specText.
func Format(kind Kind, identity string, specText string) string {
	if specText == "" {
		return fmt.Sprintf("%s %q", kind, identity)
	}
	return fmt.Sprintf("%s %q %s", kind, identity, specText)
}
