package buildrun

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/depforge/depforge/internal/fsutil"
	"github.com/depforge/depforge/version"
	"github.com/depforge/depforge/versionfile"
)

// SchemeSettings is the subset of `xcodebuild -showBuildSettings`
// output the filter step needs.
type SchemeSettings struct {
	FrameworkType      string // "dynamic" or "static"
	SupportedPlatforms []versionfile.Platform
}

// SettingsLoader loads a scheme's build settings; abstracted so tests
// can substitute a fake instead of invoking the real build tool.
type SettingsLoader func(ctx context.Context, proj ProjectRef, scheme string) (SchemeSettings, error)

const (
	settingsLoadTimeout  = 60 * time.Second
	settingsLoadRetries  = 5
)

// LoadSettings implements the default SettingsLoader over the real
// build tool, with a 60s timeout and up to five retries.
func LoadSettings(ctx context.Context, proj ProjectRef, scheme string) (SchemeSettings, error) {
	var lastErr error
	for attempt := 0; attempt <= settingsLoadRetries; attempt++ {
		ctx, cancel := context.WithTimeout(ctx, settingsLoadTimeout)
		args := []string{"-showBuildSettings", "-scheme", scheme}
		if proj.Kind == KindWorkspace {
			args = append(args, "-workspace", proj.Path)
		} else {
			args = append(args, "-project", proj.Path)
		}
		res, err := fsutil.Run(ctx, "", 5*time.Second, "xcodebuild", args...)
		cancel()
		if err == nil {
			return parseSettings(string(res.Stdout)), nil
		}
		lastErr = err
	}
	return SchemeSettings{}, errors.Wrapf(lastErr, "loading build settings for scheme %s", scheme)
}

func parseSettings(out string) SchemeSettings {
	// Real xcodebuild output is "KEY = VALUE" lines; this is a
	// deliberately small parser covering only the two facts the
	// filter step needs.
	var s SchemeSettings
	s.FrameworkType = "dynamic"
	for _, line := range splitLines(out) {
		if contains(line, "MACH_O_TYPE") && contains(line, "staticlib") {
			s.FrameworkType = "static"
		}
		if key, val, ok := strings.Cut(line, "="); ok && strings.TrimSpace(key) == "SUPPORTED_PLATFORMS" {
			seen := map[versionfile.Platform]bool{}
			for _, listed := range strings.Fields(val) {
				for platform, sdks := range platformSDKs {
					for _, sdk := range sdks {
						if string(sdk) == listed && !seen[platform] {
							seen[platform] = true
							s.SupportedPlatforms = append(s.SupportedPlatforms, platform)
						}
					}
				}
			}
		}
	}
	return s
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (indexOf(s, substr) >= 0)
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

// FilterBuildable keeps only schemes whose framework type is dynamic
// and whose supported platforms intersect requested.
func FilterBuildable(ctx context.Context, proj ProjectRef, names []string, requested []versionfile.Platform, load SettingsLoader) ([]Scheme, error) {
	var out []Scheme
	for _, name := range names {
		settings, err := load(ctx, proj, name)
		if err != nil {
			return nil, errors.Wrapf(err, "loading settings for scheme %s", name)
		}
		if settings.FrameworkType != "dynamic" {
			continue
		}
		matched := intersectPlatforms(settings.SupportedPlatforms, requested)
		if len(matched) == 0 {
			continue
		}
		out = append(out, Scheme{Name: name, Project: proj, Platform: matched[0], SDKs: sdksFor(matched[0])})
	}
	return out, nil
}

// platformSDKs maps each supported platform to the build-tool SDK
// names a scheme on that platform builds against: a device SDK and,
// where the platform has one, its simulator counterpart.
var platformSDKs = map[versionfile.Platform][]SDK{
	"iOS":     {"iphoneos", "iphonesimulator"},
	"tvOS":    {"appletvos", "appletvsimulator"},
	"watchOS": {"watchos", "watchsimulator"},
	"macOS":   {"macosx"},
}

func sdksFor(platform versionfile.Platform) []SDK {
	return platformSDKs[platform]
}

func intersectPlatforms(a, b []versionfile.Platform) []versionfile.Platform {
	set := map[versionfile.Platform]bool{}
	for _, p := range b {
		set[p] = true
	}
	var out []versionfile.Platform
	for _, p := range a {
		if set[p] {
			out = append(out, p)
		}
	}
	return out
}

// PairWithOwner assigns each scheme the first workspace containing it,
// else its owning project. projs must already be in LocateProjects
// order (workspaces first at a given depth) so "first" is well
// defined.
func PairWithOwner(projs []ProjectRef, schemesByProject map[string][]string) map[string]ProjectRef {
	owner := map[string]ProjectRef{}
	for _, proj := range projs {
		for _, scheme := range schemesByProject[proj.Path] {
			if cur, already := owner[scheme]; already && (cur.Kind == KindWorkspace || proj.Kind != KindWorkspace) {
				continue
			}
			owner[scheme] = proj
		}
	}
	return owner
}

// Build runs the full per-dependency build for one already-selected
// scheme: cache check, build (delegated to runSDK per SDK and
// lipo-merge, both left to caller-supplied hooks so tests don't
// require a real toolchain), post-process, and version-file write.
type Build struct {
	Dep           string
	Revision      version.PinnedRevision
	BuildRoot     string
	Platforms     []versionfile.Platform
	LocalToolchain string
}

// Run executes one dependency's build across scheme, emitting events
// on events. runSDK builds a single SDK and returns the produced
// product's path; merge combines a simulator+device pair into a fat
// binary.
func (b Build) Run(ctx context.Context, scheme Scheme, runSDK func(ctx context.Context, sdk SDK) (string, error), merge func(devBinPath, simBinPath, outPath string) error, events chan<- Event) error {
	vfPath := versionfile.Path(b.BuildRoot, b.Dep)
	existing, err := versionfile.Read(vfPath)
	if err != nil {
		return errors.Wrapf(err, "reading version file for %s", b.Dep)
	}
	if versionfile.Matches(existing, b.Revision, b.Platforms, b.BuildRoot, b.LocalToolchain, nil) {
		events <- Event{Kind: EventCached, Dep: b.Dep, Scheme: scheme.Name, Platform: scheme.Platform}
		return nil
	}

	events <- Event{Kind: EventBuilding, Dep: b.Dep, Scheme: scheme.Name, Platform: scheme.Platform}

	vf := versionfile.New(b.Revision)
	productPaths := map[SDK]string{}
	for _, sdk := range scheme.SDKs {
		productPath, err := runSDK(ctx, sdk)
		if err != nil {
			events <- Event{Kind: EventFailed, Dep: b.Dep, Scheme: scheme.Name, Reason: err.Error()}
			return &BuildFailedError{Dep: b.Dep, Scheme: scheme.Name, Log: err.Error()}
		}
		productPaths[sdk] = productPath
	}

	products, err := mergedProducts(ctx, scheme, productPaths, merge)
	if err != nil {
		events <- Event{Kind: EventFailed, Dep: b.Dep, Scheme: scheme.Name, Reason: err.Error()}
		return errors.Wrapf(err, "merging fat binary for scheme %s", scheme.Name)
	}

	for _, productPath := range products {
		hash, err := versionfile.HashProduct(productPath)
		if err != nil {
			return errors.Wrapf(err, "hashing product for %s", scheme.Name)
		}
		vf.Products[scheme.Platform] = append(vf.Products[scheme.Platform], versionfile.Product{
			Name: scheme.Name,
			Hash: hash,
		})
	}

	if err := versionfile.Write(vfPath, vf); err != nil {
		return errors.Wrapf(err, "writing version file for %s", b.Dep)
	}
	events <- Event{Kind: EventBuilt, Dep: b.Dep, Scheme: scheme.Name, Platform: scheme.Platform}
	return nil
}

// mergedProducts implements the per-SDK merge step: when productPaths
// holds both a device and a simulator build for the same scheme,
// they're combined into one fat binary via merge; otherwise (a
// single-SDK platform like macosx) each product stands on its own.
func mergedProducts(ctx context.Context, scheme Scheme, productPaths map[SDK]string, merge func(devBinPath, simBinPath, outPath string) error) ([]string, error) {
	device, simulator, hasPair := splitDeviceSimulator(scheme.SDKs)
	if !hasPair {
		out := make([]string, 0, len(productPaths))
		for _, p := range productPaths {
			out = append(out, p)
		}
		return out, nil
	}

	devPath, simPath := productPaths[device], productPaths[simulator]
	outPath := devPath + ".fat"
	if err := merge(devPath, simPath, outPath); err != nil {
		return nil, err
	}
	return []string{outPath}, nil
}

// splitDeviceSimulator separates sdks into its device and simulator
// member, by the build tool's naming convention (e.g. "iphoneos" vs.
// "iphonesimulator"). hasPair is false when sdks doesn't contain
// exactly one of each, meaning there is nothing to fat-merge.
func splitDeviceSimulator(sdks []SDK) (device, simulator SDK, hasPair bool) {
	for _, sdk := range sdks {
		if strings.HasSuffix(string(sdk), "simulator") {
			simulator = sdk
		} else {
			device = sdk
		}
	}
	hasPair = device != "" && simulator != ""
	return device, simulator, hasPair
}
