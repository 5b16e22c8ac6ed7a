package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/datawire/dlib/dlog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/depforge/depforge/manifest"
	"github.com/depforge/depforge/source"
)

func init() {
	cmd := &cobra.Command{
		Use:   "checkout [flags]",
		Short: "Materialize every locked dependency's working copy at its pinned revision",
		Args:  cobra.NoArgs,
		RunE:  runCheckout,
	}
	argparser.AddCommand(cmd)
}

func runCheckout(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
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

	coordinator := source.New(cctx.Config.CacheRoot, cctx.Config.RewriteSSH)
	for _, e := range lock.Entries {
		dlog.Infof(ctx, "checking out %s@%s", e.Dep, e.Revision)
		path, err := coordinator.Checkout(ctx, e.Dep, e.Revision)
		if err != nil {
			return errors.Wrapf(err, "checking out %s", e.Dep)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", e.Dep, path)
	}
	return nil
}
