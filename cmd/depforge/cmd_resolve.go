package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/datawire/dlib/dlog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/depforge/depforge/depid"
	"github.com/depforge/depforge/manifest"
	"github.com/depforge/depforge/resolve"
	"github.com/depforge/depforge/retriever"
	"github.com/depforge/depforge/version"
)

const (
	manifestFileName    = "depforge.manifest"
	privateManifestName = "depforge.manifest.private"
	lockFileName        = "depforge.lock"
)

func init() {
	var update string
	cmd := &cobra.Command{
		Use:   "resolve [flags]",
		Short: "Resolve the manifest's dependencies and write the lockfile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, splitIdentities(update))
		},
	}
	cmd.Flags().StringVar(&update, "update", "", "Comma-separated dependency identities to re-resolve, keeping all others pinned (partial update)")
	argparser.AddCommand(cmd)
}

func splitIdentities(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func runResolve(cmd *cobra.Command, updateOnly []string) error {
	ctx := cmd.Context()
	cctx, err := loadCtx()
	if err != nil {
		return err
	}

	m, err := loadManifest(cctx.WorkingDir)
	if err != nil {
		return err
	}

	var existingLock *manifest.Lock
	lockPath := filepath.Join(cctx.WorkingDir, lockFileName)
	if f, err := os.Open(lockPath); err == nil {
		existingLock, err = manifest.ParseLock(f)
		f.Close()
		if err != nil {
			return errors.Wrap(err, "parsing existing lockfile")
		}
	} else if !os.IsNotExist(err) {
		return errors.Wrap(err, "opening existing lockfile")
	}

	existing := existingByClonePath(existingLock, updateOnly)

	caching, store, err := openCaching(cctx)
	if err != nil {
		return err
	}
	defer store.Close()

	var root []retriever.Requirement
	for _, e := range m.Entries {
		root = append(root, retriever.Requirement{Dep: e.Dep, Spec: e.Spec})
	}

	dlog.Infof(ctx, "resolving %d root dependencies", len(root))
	ds, err := resolve.Resolve(ctx, root, caching, existing)
	if err != nil {
		return errors.Wrap(err, "resolving dependencies")
	}

	newLock := &manifest.Lock{}
	for _, sel := range ds.Selected {
		newLock.Entries = append(newLock.Entries, manifest.LockEntry{
			Kind:     kindFor(m, sel.Dep),
			Dep:      sel.Dep,
			Revision: sel.Revision,
		})
	}

	diff := manifest.DiffLocks(existingLock, newLock)

	out, err := os.Create(lockPath)
	if err != nil {
		return errors.Wrap(err, "writing lockfile")
	}
	defer out.Close()
	if err := newLock.Write(out); err != nil {
		return err
	}

	printLockDiff(cmd, diff)
	return nil
}

func loadManifest(workingDir string) (*manifest.Manifest, error) {
	pub, err := os.Open(filepath.Join(workingDir, manifestFileName))
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", manifestFileName)
	}
	defer pub.Close()

	priv, err := os.Open(filepath.Join(workingDir, privateManifestName))
	switch {
	case err == nil:
		defer priv.Close()
		return manifest.ParseAndMerge(pub, priv)
	case os.IsNotExist(err):
		return manifest.ParseAndMerge(pub, nil)
	default:
		return nil, errors.Wrapf(err, "opening %s", privateManifestName)
	}
}

// existingByClonePath builds the pinned-revision map resolve.Resolve
// expects, keyed by Dependency.ClonePath (Lock.AsMap keys by
// Dep.String() instead, which diverges from ClonePath for raw-git
// dependencies, so it can't be reused here). When updateOnly names
// specific identities, those are left out so the resolver is free to
// repick them (partial-update semantics).
func existingByClonePath(lock *manifest.Lock, updateOnly []string) map[string]version.PinnedRevision {
	if lock == nil {
		return nil
	}
	skip := map[string]bool{}
	for _, id := range updateOnly {
		id = strings.TrimSpace(id)
		if id != "" {
			skip[id] = true
		}
	}
	out := map[string]version.PinnedRevision{}
	for _, e := range lock.Entries {
		if skip[e.Dep.String()] || skip[e.Dep.ClonePath()] {
			continue
		}
		out[e.Dep.ClonePath()] = e.Revision
	}
	return out
}

// kindFor recovers the manifest directive kind for a resolved
// dependency. A transitive dependency that never appeared as a root
// manifest entry falls back to KindGitHub when hosted on github.com,
// else to KindGit.
func kindFor(m *manifest.Manifest, dep depid.Dependency) manifest.Kind {
	for _, e := range m.Entries {
		if e.Dep.Equal(dep) {
			return e.Kind
		}
	}
	if dep.Kind() == depid.Hosted && dep.Host() == "github.com" {
		return manifest.KindGitHub
	}
	return manifest.KindGit
}

func printLockDiff(cmd *cobra.Command, diff *manifest.LockDiff) {
	w := cmd.OutOrStdout()
	if diff == nil {
		fmt.Fprintln(w, "no changes")
		return
	}
	for _, id := range diff.Added {
		fmt.Fprintf(w, "+ %s\n", id)
	}
	for _, id := range diff.Removed {
		fmt.Fprintf(w, "- %s\n", id)
	}
	for _, c := range diff.Changed {
		fmt.Fprintf(w, "~ %s: %s -> %s\n", c.Identity, c.From, c.To)
	}
}
