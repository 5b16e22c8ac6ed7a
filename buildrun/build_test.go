package buildrun

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/depforge/depforge/versionfile"
)

func fakeLoader(settings map[string]SchemeSettings) SettingsLoader {
	return func(ctx context.Context, proj ProjectRef, scheme string) (SchemeSettings, error) {
		return settings[scheme], nil
	}
}

func TestFilterBuildableKeepsDynamicWithMatchingPlatform(t *testing.T) {
	settings := map[string]SchemeSettings{
		"Dynamic-iOS": {
			FrameworkType:      "dynamic",
			SupportedPlatforms: []versionfile.Platform{"iOS"},
		},
		"Static-iOS": {
			FrameworkType:      "static",
			SupportedPlatforms: []versionfile.Platform{"iOS"},
		},
		"Dynamic-macOS": {
			FrameworkType:      "dynamic",
			SupportedPlatforms: []versionfile.Platform{"macOS"},
		},
	}

	proj := ProjectRef{Kind: KindProject, Path: "Foo.xcodeproj"}
	schemes, err := FilterBuildable(context.Background(), proj, []string{"Dynamic-iOS", "Static-iOS", "Dynamic-macOS"}, []versionfile.Platform{"iOS"}, fakeLoader(settings))
	if err != nil {
		t.Fatalf("FilterBuildable: %v", err)
	}
	if len(schemes) != 1 || schemes[0].Name != "Dynamic-iOS" {
		t.Fatalf("expected only Dynamic-iOS to survive, got %+v", schemes)
	}
}

func TestBuildRunMergesDeviceAndSimulatorProducts(t *testing.T) {
	scheme := Scheme{Name: "Foo", Platform: "iOS", SDKs: []SDK{"iphoneos", "iphonesimulator"}}
	b := Build{Dep: "Foo", Revision: "v1.0.0", BuildRoot: t.TempDir(), Platforms: []versionfile.Platform{"iOS"}}

	dir := t.TempDir()
	runSDK := func(ctx context.Context, sdk SDK) (string, error) {
		return filepath.Join(dir, string(sdk), "Foo"), nil
	}

	var mergedDev, mergedSim, mergedOut string
	merge := func(devBinPath, simBinPath, outPath string) error {
		mergedDev, mergedSim, mergedOut = devBinPath, simBinPath, outPath
		if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
			return err
		}
		return os.WriteFile(outPath, []byte("fat"), 0644)
	}

	events := make(chan Event, 16)
	if err := b.Run(context.Background(), scheme, runSDK, merge, events); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if mergedDev != filepath.Join(dir, "iphoneos", "Foo") || mergedSim != filepath.Join(dir, "iphonesimulator", "Foo") {
		t.Fatalf("expected merge to receive both per-SDK products, got dev=%q sim=%q", mergedDev, mergedSim)
	}
	if mergedOut == "" {
		t.Fatalf("expected merge to be called with a non-empty output path")
	}
}

func TestPairWithOwnerPrefersWorkspace(t *testing.T) {
	ws := ProjectRef{Kind: KindWorkspace, Path: "App.xcworkspace", Depth: 0}
	proj := ProjectRef{Kind: KindProject, Path: "Foo.xcodeproj", Depth: 0}

	owner := PairWithOwner([]ProjectRef{ws, proj}, map[string][]string{
		ws.Path:   {"Foo"},
		proj.Path: {"Foo"},
	})

	if owner["Foo"] != ws {
		t.Fatalf("expected Foo to be owned by workspace, got %+v", owner["Foo"])
	}
}
