package versionfile

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/depforge/depforge/version"
)

// HashProduct computes the SHA-256 (hex) of the binary at path, using
// the standard library's crypto/sha256 directly rather than shelling
// out to `shasum -a 256` for the same computation.
func HashProduct(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "hashing product %s", path)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, "hashing product %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ToolchainVersions, when non-nil, reports the local toolchain version
// certified module-stable against a recorded one — e.g. Swift ABI
// stability across minor releases. A nil comparator falls back to
// exact string equality.
type ToolchainVersions interface {
	ModuleStable(recorded, local string) bool
}

// Matches is the build cache's read path: vf nil means no version
// file exists (an unconditional rebuild); non-nil reports whether the
// recorded state is still valid for rev across the requested platforms
// given the products found on disk at productDir.
func Matches(vf *VersionFile, rev version.PinnedRevision, platforms []Platform, productDir string, localToolchain string, tc ToolchainVersions) bool {
	if vf == nil {
		return false
	}
	if vf.Commitish != rev {
		return false
	}

	for _, p := range platforms {
		products, ok := vf.Products[p]
		if !ok {
			continue
		}
		for _, prod := range products {
			binPath := productDir + "/" + string(p) + "/" + prod.Name
			hash, err := HashProduct(binPath)
			if err != nil || hash != prod.Hash {
				return false
			}
			if prod.SwiftToolchainVersion == "" {
				continue
			}
			if prod.SwiftToolchainVersion == localToolchain {
				continue
			}
			if tc == nil || !tc.ModuleStable(prod.SwiftToolchainVersion, localToolchain) {
				return false
			}
		}
	}
	return true
}
