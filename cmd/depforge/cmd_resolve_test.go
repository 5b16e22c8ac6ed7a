package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depforge/depforge/depid"
	"github.com/depforge/depforge/manifest"
	"github.com/depforge/depforge/version"
)

func TestSplitIdentities(t *testing.T) {
	assert.Nil(t, splitIdentities(""))
	assert.Equal(t, []string{"a", "b"}, splitIdentities("a,b"))
}

func TestExistingByClonePathNilLock(t *testing.T) {
	assert.Nil(t, existingByClonePath(nil, nil))
}

func TestExistingByClonePathKeysByClonePathNotString(t *testing.T) {
	dep := depid.NewRawGit("https://example.com/foo/bar.git")
	lock := &manifest.Lock{Entries: []manifest.LockEntry{
		{Kind: manifest.KindGit, Dep: dep, Revision: version.PinnedRevision("deadbeef")},
	}}

	out := existingByClonePath(lock, nil)
	require.Len(t, out, 1)
	rev, ok := out[dep.ClonePath()]
	require.True(t, ok, "expected entry keyed by ClonePath, not String")
	assert.Equal(t, version.PinnedRevision("deadbeef"), rev)
}

func TestExistingByClonePathSkipsUpdateOnly(t *testing.T) {
	a := depid.NewHosted("github.com", "owner", "a")
	b := depid.NewHosted("github.com", "owner", "b")
	lock := &manifest.Lock{Entries: []manifest.LockEntry{
		{Kind: manifest.KindGitHub, Dep: a, Revision: version.PinnedRevision("r1")},
		{Kind: manifest.KindGitHub, Dep: b, Revision: version.PinnedRevision("r2")},
	}}

	out := existingByClonePath(lock, []string{a.String()})
	assert.NotContains(t, out, a.ClonePath())
	assert.Contains(t, out, b.ClonePath())
}

func TestKindForFallsBackByHost(t *testing.T) {
	m := &manifest.Manifest{}
	github := depid.NewHosted("github.com", "owner", "repo")
	assert.Equal(t, manifest.KindGitHub, kindFor(m, github))

	raw := depid.NewRawGit("https://example.com/owner/repo.git")
	assert.Equal(t, manifest.KindGit, kindFor(m, raw))
}

func TestKindForPrefersManifestEntry(t *testing.T) {
	dep := depid.NewHosted("github.com", "owner", "repo")
	m := &manifest.Manifest{Entries: []manifest.Entry{
		{Kind: manifest.KindGit, Dep: dep},
	}}
	assert.Equal(t, manifest.KindGit, kindFor(m, dep))
}
