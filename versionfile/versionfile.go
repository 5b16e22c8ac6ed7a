// Package versionfile implements the build cache: a per-dependency
// on-disk manifest associating a resolved revision with per-product
// content hashes, linkage, and toolchain-version metadata, plus the
// Matches predicate the build orchestrator consults to skip
// rebuilding. Writes are atomic (temp-file-then-rename) and the file
// itself is JSON.
package versionfile

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/theckman/go-flock"

	"github.com/depforge/depforge/version"
)

// Platform is one of the closed set of platform identifiers a
// dependency can build products for.
type Platform string

// Linkage describes how a built product links against its consumer.
type Linkage string

const (
	LinkageDynamic Linkage = "dynamic"
	LinkageStatic  Linkage = "static"
)

// Product is one built binary's cache record.
type Product struct {
	Name                  string  `json:"name"`
	Hash                  string  `json:"hash"`
	Linking               Linkage `json:"linking,omitempty"`
	SwiftToolchainVersion string  `json:"swiftToolchainVersion,omitempty"`
}

// VersionFile is the build cache entry for one dependency: a resolved
// revision plus the products built for it, grouped by platform.
type VersionFile struct {
	Commitish version.PinnedRevision `json:"commitish"`
	Products  map[Platform][]Product `json:"-"`
}

// New starts an empty VersionFile pinned to rev, as written after a
// dependency build with no products — an empty file is still written
// so a later check sees a completed (if empty) build.
func New(rev version.PinnedRevision) *VersionFile {
	return &VersionFile{Commitish: rev, Products: map[Platform][]Product{}}
}

// Path is the on-disk location of dep's version file under buildRoot:
// "<project_root>/Build/.<dep_name>.version".
func Path(buildRoot, depName string) string {
	return filepath.Join(buildRoot, "."+depName+".version")
}

// Read loads the version file at path, returning (nil, nil) if it
// doesn't exist — the "no version file" case matches? treats as an
// unconditional rebuild.
func Read(path string) (*VersionFile, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading version file %s", path)
	}

	var generic map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, errors.Wrapf(err, "parsing version file %s", path)
	}

	vf := &VersionFile{Products: map[Platform][]Product{}}
	for k, v := range generic {
		if k == "commitish" {
			if err := json.Unmarshal(v, &vf.Commitish); err != nil {
				return nil, errors.Wrapf(err, "parsing commitish in %s", path)
			}
			continue
		}
		var products []Product
		if err := json.Unmarshal(v, &products); err != nil {
			return nil, errors.Wrapf(err, "parsing platform %q in %s", k, path)
		}
		vf.Products[Platform(k)] = products
	}
	return vf, nil
}

// Write atomically (temp file + rename) persists v to path, serialized
// against concurrent writers for the same dependency by a go-flock
// advisory lock alongside it: reads and writes of a given version file
// are serialized by the build orchestrator.
func Write(path string, v *VersionFile) error {
	lock := flock.NewFlock(path + ".lock")
	if err := lock.Lock(); err != nil {
		return errors.Wrapf(err, "locking version file %s", path)
	}
	defer lock.Unlock()

	doc := map[string]interface{}{"commitish": v.Commitish}
	for platform, products := range v.Products {
		doc[string(platform)] = products
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encoding version file %s", path)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".version-*")
	if err != nil {
		return errors.Wrapf(err, "creating temp file for %s", path)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "writing temp version file for %s", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "closing temp version file for %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "renaming temp version file into place at %s", path)
	}
	return nil
}
