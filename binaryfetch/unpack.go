package binaryfetch

import (
	"archive/zip"
	"debug/macho"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"

	"github.com/depforge/depforge/internal/fsutil"
)

// Platform is the build-output platform a bundle was matched to.
type Platform string

const (
	PlatformDevice    Platform = "device"
	PlatformSimulator Platform = "simulator"
)

// Bundle is one framework/xcframework directory found inside a
// downloaded asset, with the platform it was matched to by
// architecture inspection.
type Bundle struct {
	Path     string
	Platform Platform
}

// Unpack extracts asset into a fresh temp directory (mkdtemp semantics
// via os.MkdirTemp), enumerates framework bundles at any depth dropping
// nested ones, classifies each by architecture, copies it into the
// per-platform output directory under outputRoot, and removes the temp
// directory whether or not the copy succeeded.
func Unpack(asset Asset, outputRoot string) ([]Bundle, error) {
	tmp, err := os.MkdirTemp("", "depforge-binfetch-*")
	if err != nil {
		return nil, errors.Wrap(err, "creating unpack temp dir")
	}
	defer os.RemoveAll(tmp)

	if err := unzip(asset.CachePath, tmp); err != nil {
		return nil, errors.Wrapf(err, "unzipping %s", asset.CachePath)
	}

	roots, err := findTopLevelBundles(tmp)
	if err != nil {
		return nil, err
	}

	var out []Bundle
	for _, root := range roots {
		platform, err := detectPlatform(root)
		if err != nil {
			return nil, errors.Wrapf(err, "detecting platform for %s", root)
		}
		dst := filepath.Join(outputRoot, string(platform), filepath.Base(root))
		if err := fsutil.CopyTree(root, dst); err != nil {
			return nil, errors.Wrapf(err, "copying bundle %s to %s", root, dst)
		}
		out = append(out, Bundle{Path: dst, Platform: platform})
	}
	return out, nil
}

func unzip(src, dst string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		target := filepath.Join(dst, f.Name)
		if !strings.HasPrefix(target, filepath.Clean(dst)+string(os.PathSeparator)) {
			return errors.Errorf("zip entry %q escapes destination", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, f.Mode()); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, f.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}

// findTopLevelBundles walks root looking for *.framework/*.xcframework
// directories, dropping nested frameworks by not descending once a
// bundle root is found.
func findTopLevelBundles(root string) ([]string, error) {
	var found []string
	err := godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if !de.IsDir() {
				return nil
			}
			if isBundleAsset(path) {
				found = append(found, path)
				return filepath.SkipDir
			}
			return nil
		},
		Unsorted: true,
	})
	return found, err
}

// detectPlatform inspects the bundle's main binary's Mach-O
// architecture list: arm* implies the device platform, x86_64 implies
// simulator/host.
func detectPlatform(bundlePath string) (Platform, error) {
	name := strings.TrimSuffix(filepath.Base(bundlePath), filepath.Ext(bundlePath))
	binPath := filepath.Join(bundlePath, name)
	if _, err := os.Stat(binPath); err != nil {
		return "", errors.Wrapf(err, "locating main binary for %s", bundlePath)
	}

	f, err := macho.OpenFat(binPath)
	if err == nil {
		defer f.Close()
		for _, arch := range f.Arches {
			if isARM(arch.Cpu) {
				return PlatformDevice, nil
			}
		}
		return PlatformSimulator, nil
	}

	single, err := macho.Open(binPath)
	if err != nil {
		return "", errors.Wrapf(err, "reading Mach-O header for %s", binPath)
	}
	defer single.Close()
	if isARM(single.Cpu) {
		return PlatformDevice, nil
	}
	return PlatformSimulator, nil
}

func isARM(cpu macho.Cpu) bool {
	return cpu == macho.CpuArm || cpu == macho.CpuArm64
}
