// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package version implements the version-constraint algebra: parsing and
// ordering of semantic versions, and the VersionSpec types a manifest can
// declare against a dependency.
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	mmsemver "github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
)

// ParseError reports a version or spec parse failure with enough context
// (the offending text and a column) to build a useful diagnostic.
type ParseError struct {
	Input  string
	Column int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s (at column %d of %q)", e.Reason, e.Column, e.Input)
}

// identRe matches a single SemVer dot-separated identifier: ASCII
// alphanumerics and hyphen only.
var identRe = regexp.MustCompile(`^[0-9A-Za-z-]+$`)

var numericRe = regexp.MustCompile(`^[0-9]+$`)

// SemVer is a parsed semantic version: (major, minor, patch, pre-release,
// build metadata). Build metadata is carried for round-tripping but ignored
// by Compare, per SemVer §11.
type SemVer struct {
	major, minor, patch uint64
	pre, build          string
	v                    *mmsemver.Version
}

// Major returns the major version component.
func (s SemVer) Major() uint64 { return s.major }

// Minor returns the minor version component.
func (s SemVer) Minor() uint64 { return s.minor }

// Patch returns the patch version component.
func (s SemVer) Patch() uint64 { return s.patch }

// Prerelease returns the dot-joined pre-release identifiers, or "" if none.
func (s SemVer) Prerelease() string { return s.pre }

// BuildMetadata returns the build metadata string, or "" if none.
func (s SemVer) BuildMetadata() string { return s.build }

// IsPrerelease reports whether s carries pre-release identifiers.
func (s SemVer) IsPrerelease() bool { return s.pre != "" }

func (s SemVer) String() string {
	str := fmt.Sprintf("%d.%d.%d", s.major, s.minor, s.patch)
	if s.pre != "" {
		str += "-" + s.pre
	}
	if s.build != "" {
		str += "+" + s.build
	}
	return str
}

// Compare returns -1, 0 or 1 as s orders before, the same as, or after o,
// per SemVer §11 (pre-release identifiers compared dot-component by
// dot-component; build metadata ignored).
func (s SemVer) Compare(o SemVer) int {
	return s.v.Compare(o.v)
}

// Less reports whether s orders strictly before o.
func (s SemVer) Less(o SemVer) bool { return s.Compare(o) < 0 }

// Equal reports whether s and o compare equal (build metadata ignored).
func (s SemVer) Equal(o SemVer) bool { return s.Compare(o) == 0 }

// SameMajorMinorPatch reports whether s and o agree on major.minor.patch,
// irrespective of pre-release/build metadata. Used by AtLeast's special
// pre-release admission rule.
func (s SemVer) SameMajorMinorPatch(o SemVer) bool {
	return s.major == o.major && s.minor == o.minor && s.patch == o.patch
}

// ParseSemVer parses a semantic version. It tolerates a leading "v" or
// "version-" prefix; rejects leading zeros in purely-numeric pre-release
// identifiers; accepts only ASCII alphanumerics and hyphen in identifiers;
// and rejects empty dot-separated segments.
func ParseSemVer(raw string) (SemVer, error) {
	orig := raw
	trimmed := raw
	switch {
	case strings.HasPrefix(trimmed, "version-"):
		trimmed = trimmed[len("version-"):]
	case strings.HasPrefix(trimmed, "v"):
		trimmed = trimmed[1:]
	}

	if trimmed == "" {
		return SemVer{}, &ParseError{Input: orig, Column: 1, Reason: "empty version"}
	}

	// Split off build metadata, then pre-release, so we can validate
	// their identifiers independently of Masterminds/semver's own
	// (looser, historically compatible) acceptance rules.
	core := trimmed
	var pre, build string
	if i := strings.IndexByte(core, '+'); i >= 0 {
		build = core[i+1:]
		core = core[:i]
		if build == "" {
			return SemVer{}, &ParseError{Input: orig, Column: len(orig), Reason: "empty build metadata"}
		}
		for _, seg := range strings.Split(build, ".") {
			if seg == "" || !identRe.MatchString(seg) {
				return SemVer{}, &ParseError{Input: orig, Column: strings.Index(orig, build) + 1, Reason: "invalid build metadata identifier " + strconv.Quote(seg)}
			}
		}
	}
	if i := strings.IndexByte(core, '-'); i >= 0 {
		pre = core[i+1:]
		core = core[:i]
		if pre == "" {
			return SemVer{}, &ParseError{Input: orig, Column: len(orig), Reason: "empty pre-release"}
		}
		for _, seg := range strings.Split(pre, ".") {
			if seg == "" || !identRe.MatchString(seg) {
				return SemVer{}, &ParseError{Input: orig, Column: 1, Reason: "invalid pre-release identifier " + strconv.Quote(seg)}
			}
			if numericRe.MatchString(seg) && len(seg) > 1 && seg[0] == '0' {
				return SemVer{}, &ParseError{Input: orig, Column: 1, Reason: "leading zero in numeric pre-release identifier " + strconv.Quote(seg)}
			}
		}
	}

	parts := strings.Split(core, ".")
	if len(parts) != 3 {
		return SemVer{}, &ParseError{Input: orig, Column: 1, Reason: "expected major.minor.patch"}
	}
	nums := make([]uint64, 3)
	for i, p := range parts {
		if p == "" {
			return SemVer{}, &ParseError{Input: orig, Column: 1, Reason: "empty version segment"}
		}
		if len(p) > 1 && p[0] == '0' {
			return SemVer{}, &ParseError{Input: orig, Column: 1, Reason: "leading zero in numeric segment " + strconv.Quote(p)}
		}
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return SemVer{}, &ParseError{Input: orig, Column: 1, Reason: "non-numeric version segment " + strconv.Quote(p)}
		}
		nums[i] = n
	}

	v, err := mmsemver.NewVersion(trimmed)
	if err != nil {
		return SemVer{}, errors.Wrapf(err, "parsing %q as semver", orig)
	}

	return SemVer{major: nums[0], minor: nums[1], patch: nums[2], pre: pre, build: build, v: v}, nil
}
