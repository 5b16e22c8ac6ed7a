package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/depforge/depforge/manifest"
	"github.com/depforge/depforge/versionfile"
)

func init() {
	cache := &cobra.Command{
		Use:   "cache {[flags]|SUBCOMMAND...}",
		Short: "Inspect the build cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	verify := &cobra.Command{
		Use:   "verify [flags]",
		Short: "Report which locked dependencies still match their recorded build products",
		Args:  cobra.NoArgs,
		RunE:  runCacheVerify,
	}
	cache.AddCommand(verify)
	argparser.AddCommand(cache)
}

func runCacheVerify(cmd *cobra.Command, args []string) error {
	cctx, err := loadCtx()
	if err != nil {
		return err
	}

	lockPath := filepath.Join(cctx.WorkingDir, lockFileName)
	f, err := os.Open(lockPath)
	if err != nil {
		return errors.Wrapf(err, "opening %s (run `depforge resolve` first)", lockFileName)
	}
	defer f.Close()

	lock, err := manifest.ParseLock(f)
	if err != nil {
		return errors.Wrap(err, "parsing lockfile")
	}

	buildRoot := filepath.Join(cctx.WorkingDir, "Build")
	w := cmd.OutOrStdout()
	for _, e := range lock.Entries {
		path := versionfile.Path(buildRoot, e.Dep.Name())
		vf, err := versionfile.Read(path)
		if err != nil {
			return errors.Wrapf(err, "reading version file for %s", e.Dep)
		}
		ok := versionfile.Matches(vf, e.Revision, cctx.Config.Platforms, buildRoot, cctx.Config.LocalToolchain, nil)
		status := "stale"
		if ok {
			status = "cached"
		}
		fmt.Fprintf(w, "%s: %s\n", e.Dep, status)
	}
	return nil
}
