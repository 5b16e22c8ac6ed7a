package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/datawire/dlib/dlog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/depforge/depforge/buildrun"
	"github.com/depforge/depforge/internal/fsutil"
	"github.com/depforge/depforge/manifest"
	"github.com/depforge/depforge/source"
)

func init() {
	var jobs int
	cmd := &cobra.Command{
		Use:   "build [flags]",
		Short: "Build every locked dependency's checkout, skipping ones already cached",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, jobs)
		},
	}
	cmd.Flags().IntVar(&jobs, "jobs", 4, "Maximum number of dependencies to build concurrently")
	argparser.AddCommand(cmd)
}

func runBuild(cmd *cobra.Command, jobs int) error {
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
	buildRoot := filepath.Join(cctx.WorkingDir, "Build")
	if err := os.MkdirAll(buildRoot, 0755); err != nil {
		return errors.Wrap(err, "creating build output directory")
	}

	orchestrator := buildrun.Orchestrator{
		LoadSettings: buildrun.LoadSettings,
		RunSDK:       runSDKBuild,
		PostProcess:  postProcessProduct,
	}

	events := make(chan buildrun.Event, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			logBuildEvent(ctx, ev)
		}
	}()

	// Fan out across independent dependencies, bounded by -jobs;
	// independent dependencies build concurrently while a single
	// dependency's own steps stay ordered.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for _, e := range lock.Entries {
		e := e
		g.Go(func() error {
			checkoutPath, err := coordinator.Checkout(gctx, e.Dep, e.Revision)
			if err != nil {
				return errors.Wrapf(err, "checking out %s", e.Dep)
			}
			dep := buildrun.DependencyBuild{
				Dep:            e.Dep.Name(),
				Revision:       e.Revision,
				CheckoutRoot:   checkoutPath,
				BuildRoot:      buildRoot,
				Platforms:      cctx.Config.Platforms,
				LocalToolchain: cctx.Config.LocalToolchain,
			}
			return orchestrator.Orchestrate(gctx, dep, events)
		})
	}
	buildErr := g.Wait()
	close(events)
	<-done

	if buildErr != nil {
		return errors.Wrap(buildErr, "building dependencies")
	}
	fmt.Fprintln(cmd.OutOrStdout(), "build complete")
	return nil
}

func logBuildEvent(ctx context.Context, ev buildrun.Event) {
	switch ev.Kind {
	case buildrun.EventFailed:
		dlog.Errorf(ctx, "%s: %s failed: %s", ev.Dep, ev.Scheme, ev.Reason)
	case buildrun.EventCached:
		dlog.Infof(ctx, "%s: %s already cached", ev.Dep, ev.Scheme)
	default:
		dlog.Infof(ctx, "%s: %s %s", ev.Dep, ev.Scheme, ev.Kind)
	}
}

// runSDKBuild invokes the real build tool for one scheme/SDK pair.
// Like buildrun.LoadSettings and buildrun.EnumerateSchemes, it assumes a
// real xcodebuild is on PATH; the orchestration logic around these
// calls takes them as hooks, so tests exercise it against fakes instead.
func runSDKBuild(ctx context.Context, dep buildrun.DependencyBuild, scheme buildrun.Scheme, sdk buildrun.SDK) (string, error) {
	args := []string{"build", "-scheme", scheme.Name, "-sdk", string(sdk), "-configuration", "Release"}
	if scheme.Project.Kind == buildrun.KindWorkspace {
		args = append(args, "-workspace", scheme.Project.Path)
	} else {
		args = append(args, "-project", scheme.Project.Path)
	}

	res, err := fsutil.Run(ctx, dep.CheckoutRoot, 10*time.Second, "xcodebuild", args...)
	if err != nil {
		return "", errors.Wrapf(err, "xcodebuild %s (sdk %s)", scheme.Name, sdk)
	}
	if res.ExitCode != 0 {
		return "", errors.Errorf("xcodebuild %s (sdk %s) exited %d: %s", scheme.Name, sdk, res.ExitCode, res.Stderr)
	}

	return filepath.Join(dep.BuildRoot, string(scheme.Platform), scheme.Name+".framework", scheme.Name), nil
}

func postProcessProduct(ctx context.Context, dep buildrun.DependencyBuild, scheme buildrun.Scheme, productPath string) error {
	bundlePath := filepath.Dir(productPath)
	return buildrun.PostProcess(ctx, bundlePath, productPath, buildrun.PostProcessOptions{
		GenerateDSYM: true,
	})
}
