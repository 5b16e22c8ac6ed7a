// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package depid defines Dependency: the identity of a remote source,
// in one of two variants: a hosted-repository reference and a raw git
// URL.
package depid

import (
	"fmt"
	"strings"
)

// Kind discriminates the two Dependency variants.
type Kind int

const (
	// Hosted identifies a dependency by host/owner/repo triple, e.g.
	// "github.com/owner/repo".
	Hosted Kind = iota
	// RawGit identifies a dependency by an arbitrary git URL.
	RawGit
)

// Dependency is an identity for a remote source. Equality is structural:
// two Dependency values are equal iff their fields are equal, which in
// turn determines both the on-disk clone path and the remote URL.
type Dependency struct {
	kind            Kind
	host, owner, repo string
	rawURL          string
}

// NewHosted builds a hosted-repository Dependency.
func NewHosted(host, owner, repo string) Dependency {
	return Dependency{kind: Hosted, host: host, owner: owner, repo: repo}
}

// NewRawGit builds a raw-git-URL Dependency.
func NewRawGit(url string) Dependency {
	return Dependency{kind: RawGit, rawURL: url}
}

// Kind reports which variant d is.
func (d Dependency) Kind() Kind { return d.kind }

// Equal reports structural equality.
func (d Dependency) Equal(o Dependency) bool {
	return d == o
}

// Name is a short human-readable identifier, used for on-disk paths and
// log lines: "owner/repo" for hosted deps, the raw URL's last path
// component for raw git deps.
func (d Dependency) Name() string {
	switch d.kind {
	case Hosted:
		return d.owner + "/" + d.repo
	default:
		trimmed := strings.TrimSuffix(d.rawURL, ".git")
		if i := strings.LastIndexByte(trimmed, '/'); i >= 0 {
			return trimmed[i+1:]
		}
		return trimmed
	}
}

// ClonePath is the on-disk path component under
// <cache_root>/dependencies/ for this dependency. Hosted deps use
// host/owner/repo so that two different hosts can't collide; raw git deps
// hash isn't necessary since the URL itself is already host-qualified for
// any sane git remote and we just slugify it.
func (d Dependency) ClonePath() string {
	switch d.kind {
	case Hosted:
		return fmt.Sprintf("%s/%s/%s", d.host, d.owner, d.repo)
	default:
		return slugifyURL(d.rawURL)
	}
}

// RemoteURL returns the URL the coordinator should clone/fetch from.
// rewriteSSH, if true, converts an https:// hosted URL to the
// git@host:owner/repo.git SSH form (config-driven HTTPS<->SSH
// rewriting).
func (d Dependency) RemoteURL(rewriteSSH bool) string {
	switch d.kind {
	case Hosted:
		if rewriteSSH {
			return fmt.Sprintf("git@%s:%s/%s.git", d.host, d.owner, d.repo)
		}
		return fmt.Sprintf("https://%s/%s/%s.git", d.host, d.owner, d.repo)
	default:
		if rewriteSSH && strings.HasPrefix(d.rawURL, "https://") {
			rest := strings.TrimPrefix(d.rawURL, "https://")
			if i := strings.IndexByte(rest, '/'); i >= 0 {
				return fmt.Sprintf("git@%s:%s", rest[:i], rest[i+1:])
			}
		}
		return d.rawURL
	}
}

// Host returns the hostname for a Hosted dependency, or "" for RawGit.
func (d Dependency) Host() string { return d.host }

// Owner returns the owner for a Hosted dependency, or "" for RawGit.
func (d Dependency) Owner() string { return d.owner }

// Repo returns the repo name for a Hosted dependency, or "" for RawGit.
func (d Dependency) Repo() string { return d.repo }

// RawURL returns the URL for a RawGit dependency, or "" for Hosted.
func (d Dependency) RawURL() string { return d.rawURL }

func (d Dependency) String() string {
	switch d.kind {
	case Hosted:
		return fmt.Sprintf("%s/%s/%s", d.host, d.owner, d.repo)
	default:
		return d.rawURL
	}
}

func slugifyURL(u string) string {
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimPrefix(u, "git@")
	u = strings.TrimSuffix(u, ".git")
	return strings.NewReplacer(":", "/", "//", "/").Replace(u)
}
