package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/depforge/depforge/depid"
	"github.com/depforge/depforge/manifest"
)

func init() {
	cmd := &cobra.Command{
		Use:   "status [flags]",
		Short: "Report dependencies missing from, or out of date against, the lockfile",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
	argparser.AddCommand(cmd)
}

// statusRow is one manifest entry's reconciliation against the
// lockfile and the on-disk checkout.
type statusRow struct {
	Identity    string
	Missing     bool // no lock entry at all
	Mismatched  bool // locked revision no longer satisfies the manifest's spec
	NotOnDisk   bool // locked but never checked out under the cache root
}

func runStatus(cmd *cobra.Command, args []string) error {
	cctx, err := loadCtx()
	if err != nil {
		return err
	}

	m, err := loadManifest(cctx.WorkingDir)
	if err != nil {
		return err
	}

	lockPath := filepath.Join(cctx.WorkingDir, lockFileName)
	f, err := os.Open(lockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return reportStatus(cmd, allMissing(m))
		}
		return errors.Wrap(err, "opening lockfile")
	}
	defer f.Close()

	lock, err := manifest.ParseLock(f)
	if err != nil {
		return errors.Wrap(err, "parsing lockfile")
	}

	locked := map[string]manifest.LockEntry{}
	for _, e := range lock.Entries {
		locked[e.Dep.ClonePath()] = e
	}

	var rows []statusRow
	for _, entry := range m.Entries {
		le, ok := locked[entry.Dep.ClonePath()]
		if !ok {
			rows = append(rows, statusRow{Identity: entry.Dep.String(), Missing: true})
			continue
		}
		row := statusRow{Identity: entry.Dep.String()}
		if !entry.Spec.Satisfies(le.Revision, nil) {
			row.Mismatched = true
		}
		if !checkedOut(cctx.Config.CacheRoot, entry.Dep) {
			row.NotOnDisk = true
		}
		if row.Mismatched || row.NotOnDisk {
			rows = append(rows, row)
		}
	}
	return reportStatus(cmd, rows)
}

func allMissing(m *manifest.Manifest) []statusRow {
	rows := make([]statusRow, 0, len(m.Entries))
	for _, e := range m.Entries {
		rows = append(rows, statusRow{Identity: e.Dep.String(), Missing: true})
	}
	return rows
}

func checkedOut(cacheRoot string, dep depid.Dependency) bool {
	path := filepath.Join(cacheRoot, "dependencies", dep.ClonePath())
	_, err := os.Stat(path)
	return err == nil
}

func reportStatus(cmd *cobra.Command, rows []statusRow) error {
	w := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(w, "up to date")
		return nil
	}
	for _, r := range rows {
		switch {
		case r.Missing:
			fmt.Fprintf(w, "%s: not locked (run `depforge resolve`)\n", r.Identity)
		default:
			var reasons []string
			if r.Mismatched {
				reasons = append(reasons, "locked revision no longer satisfies manifest constraint")
			}
			if r.NotOnDisk {
				reasons = append(reasons, "not checked out (run `depforge checkout`)")
			}
			fmt.Fprintf(w, "%s: %s\n", r.Identity, reasons)
		}
	}
	return nil
}
