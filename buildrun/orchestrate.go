package buildrun

import (
	"context"

	"github.com/pkg/errors"

	"github.com/depforge/depforge/version"
	"github.com/depforge/depforge/versionfile"
)

// DependencyBuild is one dependency's checkout ready to be built.
type DependencyBuild struct {
	Dep            string
	Revision       version.PinnedRevision
	CheckoutRoot   string
	BuildRoot      string
	Platforms      []versionfile.Platform
	LocalToolchain string
}

// Orchestrator wires discovery, scheme enumeration/filtering,
// per-dependency build, and post-processing into a single pipeline,
// emitting one causally-ordered Event stream per dependency (events
// from different dependencies may interleave, events within one
// dependency never do, since Orchestrate processes one dependency
// fully before returning a result).
type Orchestrator struct {
	LoadSettings SettingsLoader
	RunSDK       func(ctx context.Context, dep DependencyBuild, scheme Scheme, sdk SDK) (string, error)
	PostProcess  func(ctx context.Context, dep DependencyBuild, scheme Scheme, productPath string) error
}

// Orchestrate runs the full discover/enumerate/filter/build/
// post-process pipeline for one dependency's checkout, emitting events
// on events (the caller owns the channel and is responsible for
// draining it; Orchestrate never closes it, so multiple dependencies
// can safely share one channel fed by multiple goroutines).
func (o Orchestrator) Orchestrate(ctx context.Context, dep DependencyBuild, events chan<- Event) error {
	projects, err := LocateProjects(dep.CheckoutRoot)
	if err != nil {
		return errors.Wrapf(err, "locating projects for %s", dep.Dep)
	}
	if len(projects) == 0 {
		return &NoSharedSchemesError{Project: dep.Dep}
	}

	schemesByProject := map[string][]string{}
	for _, proj := range projects {
		names, err := EnumerateSchemes(ctx, proj)
		if err != nil {
			return errors.Wrapf(err, "enumerating schemes for %s", dep.Dep)
		}
		schemesByProject[proj.Path] = names
	}

	owner := PairWithOwner(projects, schemesByProject)

	var schemes []Scheme
	for projPath, names := range schemesByProject {
		var proj ProjectRef
		for _, p := range projects {
			if p.Path == projPath {
				proj = p
				break
			}
		}
		filtered, err := FilterBuildable(ctx, proj, names, dep.Platforms, o.LoadSettings)
		if err != nil {
			return errors.Wrapf(err, "filtering schemes for %s", dep.Dep)
		}
		for _, s := range filtered {
			if owned, ok := owner[s.Name]; ok {
				s.Project = owned
			}
			schemes = append(schemes, s)
		}
	}

	if len(schemes) == 0 {
		platforms := make([]string, len(dep.Platforms))
		for i, p := range dep.Platforms {
			platforms[i] = string(p)
		}
		return &NoSharedFrameworkSchemesError{Dep: dep.Dep, Platforms: platforms}
	}

	build := Build{
		Dep:            dep.Dep,
		Revision:       dep.Revision,
		BuildRoot:      dep.BuildRoot,
		Platforms:      dep.Platforms,
		LocalToolchain: dep.LocalToolchain,
	}

	for _, scheme := range schemes {
		runSDK := func(ctx context.Context, sdk SDK) (string, error) {
			productPath, err := o.RunSDK(ctx, dep, scheme, sdk)
			if err != nil {
				return "", err
			}
			if o.PostProcess != nil {
				if err := o.PostProcess(ctx, dep, scheme, productPath); err != nil {
					return "", err
				}
			}
			return productPath, nil
		}
		merge := func(devBinPath, simBinPath, outPath string) error {
			return MergeFat(ctx, devBinPath, simBinPath, outPath)
		}
		if err := build.Run(ctx, scheme, runSDK, merge, events); err != nil {
			return errors.Wrapf(err, "building scheme %s for %s", scheme.Name, dep.Dep)
		}
	}
	return nil
}
