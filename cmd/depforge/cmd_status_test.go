package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depforge/depforge/depid"
	"github.com/depforge/depforge/manifest"
)

func TestAllMissing(t *testing.T) {
	m := &manifest.Manifest{Entries: []manifest.Entry{
		{Dep: depid.NewHosted("github.com", "owner", "a")},
		{Dep: depid.NewHosted("github.com", "owner", "b")},
	}}
	rows := allMissing(m)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.True(t, r.Missing)
	}
}

func TestCheckedOut(t *testing.T) {
	root := t.TempDir()
	dep := depid.NewHosted("github.com", "owner", "repo")

	assert.False(t, checkedOut(root, dep))

	require.NoError(t, os.MkdirAll(filepath.Join(root, "dependencies", dep.ClonePath()), 0755))
	assert.True(t, checkedOut(root, dep))
}

func TestReportStatusUpToDate(t *testing.T) {
	tc := newTestCmd()
	require.NoError(t, reportStatus(tc.Command, nil))
	assert.Contains(t, tc.out.String(), "up to date")
}

func TestReportStatusMissing(t *testing.T) {
	tc := newTestCmd()
	rows := []statusRow{{Identity: "owner/repo", Missing: true}}
	require.NoError(t, reportStatus(tc.Command, rows))
	assert.Contains(t, tc.out.String(), "owner/repo")
	assert.Contains(t, tc.out.String(), "not locked")
}
