package buildrun

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/depforge/depforge/internal/fsutil"
)

// PostProcessOptions controls the strip/dSYM/bcsymbolmap/codesign
// pass applied to a freshly built product.
type PostProcessOptions struct {
	KeepArchitectures []string // architectures to retain; others are lipo -remove'd
	GenerateDSYM      bool
	CopyBCSymbolMaps  bool
	CodesignIdentity  string // empty means skip codesigning
}

// PostProcess runs strip/dSYM/bcsymbolmap/codesign against one
// already-built product binary at binPath, inside bundlePath (the
// .framework or .xcframework root).
func PostProcess(ctx context.Context, bundlePath, binPath string, opts PostProcessOptions) error {
	if err := stripArchitectures(ctx, binPath, opts.KeepArchitectures); err != nil {
		return errors.Wrap(err, "stripping unused architectures")
	}

	if err := removeBundleSubtrees(bundlePath); err != nil {
		return errors.Wrap(err, "removing header/module subtrees")
	}

	if opts.GenerateDSYM {
		if err := generateDSYM(ctx, bundlePath, binPath); err != nil {
			return errors.Wrap(err, "generating dSYM")
		}
	}

	if opts.CopyBCSymbolMaps {
		if err := copyBCSymbolMaps(ctx, binPath, filepath.Dir(bundlePath)); err != nil {
			return errors.Wrap(err, "copying bcsymbolmaps")
		}
	}

	if opts.CodesignIdentity != "" {
		if err := codesign(ctx, bundlePath, opts.CodesignIdentity); err != nil {
			return errors.Wrap(err, "codesigning bundle")
		}
	}
	return nil
}

func stripArchitectures(ctx context.Context, binPath string, keep []string) error {
	if len(keep) == 0 {
		return nil
	}
	present, err := lipoArchitectures(ctx, binPath)
	if err != nil {
		return err
	}
	keepSet := map[string]bool{}
	for _, a := range keep {
		keepSet[a] = true
	}
	for _, arch := range present {
		if keepSet[arch] {
			continue
		}
		if _, err := fsutil.Run(ctx, "", 30*time.Second, "lipo", binPath, "-remove", arch, "-output", binPath); err != nil {
			return errors.Wrapf(err, "lipo -remove %s", arch)
		}
	}
	return nil
}

func lipoArchitectures(ctx context.Context, binPath string) ([]string, error) {
	res, err := fsutil.Run(ctx, "", 10*time.Second, "lipo", "-archs", binPath)
	if err != nil {
		return nil, err
	}
	return strings.Fields(string(res.Stdout)), nil
}

func removeBundleSubtrees(bundlePath string) error {
	for _, name := range []string{"Headers", "PrivateHeaders", "Modules"} {
		if err := removeIfExists(filepath.Join(bundlePath, name)); err != nil {
			return err
		}
	}
	return nil
}

func generateDSYM(ctx context.Context, bundlePath, binPath string) error {
	out := bundlePath + ".dSYM"
	_, err := fsutil.Run(ctx, "", 120*time.Second, "dsymutil", binPath, "-o", out)
	return err
}

// copyBCSymbolMaps reads each bitcode symbol map UUID referenced by
// binPath (via dwarfdump --uuid) and copies the corresponding
// .bcsymbolmap from the build products directory next to the bundle.
func copyBCSymbolMaps(ctx context.Context, binPath, productsDir string) error {
	res, err := fsutil.Run(ctx, "", 30*time.Second, "dwarfdump", "--uuid", binPath)
	if err != nil {
		return err
	}
	for _, uuid := range parseUUIDs(string(res.Stdout)) {
		src := filepath.Join(productsDir, uuid+".bcsymbolmap")
		dst := filepath.Join(filepath.Dir(binPath), uuid+".bcsymbolmap")
		// Not every UUID has a symbol map (e.g. the main executable's
		// own UUID); a missing source is not fatal.
		_ = copyFile(src, dst)
	}
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

func parseUUIDs(out string) []string {
	var uuids []string
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		for i, f := range fields {
			if f == "UUID:" && i+1 < len(fields) {
				uuids = append(uuids, fields[i+1])
			}
		}
	}
	return uuids
}

func codesign(ctx context.Context, bundlePath, identity string) error {
	_, err := fsutil.Run(ctx, "", 60*time.Second, "codesign", "--force", "--sign", identity, bundlePath)
	return err
}

func removeIfExists(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return errors.Wrapf(err, "removing %s", path)
	}
	return nil
}

// MergeFat merges a device and simulator build of the same scheme into
// one binary at outPath via lipo -create. Only the binary is merged; no
// per-SDK module artifacts (swiftmodule, swiftinterface) are copied.
func MergeFat(ctx context.Context, devBinPath, simBinPath, outPath string) error {
	_, err := fsutil.Run(ctx, "", 60*time.Second, "lipo", "-create", devBinPath, simBinPath, "-output", outPath)
	if err != nil {
		return errors.Wrap(err, "lipo -create")
	}
	return nil
}
