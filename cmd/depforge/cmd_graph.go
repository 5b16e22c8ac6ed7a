package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/depforge/depforge/graph"
	"github.com/depforge/depforge/manifest"
	"github.com/depforge/depforge/resolve"
)

func init() {
	cmd := &cobra.Command{
		Use:   "graph [flags]",
		Short: "Render the locked dependency graph as Graphviz DOT",
		Args:  cobra.NoArgs,
		RunE:  runGraph,
	}
	argparser.AddCommand(cmd)
}

func runGraph(cmd *cobra.Command, args []string) error {
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

	caching, store, err := openCaching(cctx)
	if err != nil {
		return err
	}
	defer store.Close()

	selected := make(map[string]resolve.Selection, len(lock.Entries))
	edges := make(map[string][]string, len(lock.Entries))
	for _, e := range lock.Entries {
		selected[e.Dep.ClonePath()] = resolve.Selection{Dep: e.Dep, Revision: e.Revision}

		dl, err := caching.DependenciesFor(ctx, e.Dep, e.Revision)
		if err != nil {
			return errors.Wrapf(err, "reading requirements of %s@%s", e.Dep, e.Revision)
		}
		for _, req := range dl.Requires {
			edges[e.Dep.ClonePath()] = append(edges[e.Dep.ClonePath()], req.Dep.ClonePath())
		}
	}

	g := graph.FromSelection(selected, edges)
	fmt.Fprintln(cmd.OutOrStdout(), graph.RenderDOT(g))
	return nil
}
