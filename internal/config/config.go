// Package config holds a Ctx value carrying working directory, cache
// root, and output streams into every command, overridable by an
// optional .depforge.toml overlay. No process-wide globals: every
// other package takes its configuration as constructor arguments,
// never by reading this package's state directly.
package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/depforge/depforge/versionfile"
)

// Config is the set of values a .depforge.toml file, or CLI flags, may
// override from their defaults.
type Config struct {
	CacheRoot      string               `toml:"cache_root"`
	RewriteSSH     bool                 `toml:"rewrite_ssh"`
	GitHubToken    string               `toml:"github_token"`
	Platforms      []versionfile.Platform `toml:"platforms"`
	LocalToolchain string               `toml:"toolchain_version"`
}

// Ctx carries a command's ambient configuration.
type Ctx struct {
	WorkingDir string
	Config     Config
	Stdout     *os.File
	Stderr     *os.File
}

const overlayFileName = ".depforge.toml"

// NewContext builds a Ctx rooted at the process's working directory
// with built-in defaults, then applies a .depforge.toml overlay if one
// is present in that directory or any ancestor.
func NewContext() (*Ctx, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "getting working directory")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = wd
	}

	c := &Ctx{
		WorkingDir: wd,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		Config: Config{
			CacheRoot:      filepath.Join(home, ".depforge", "cache"),
			RewriteSSH:     true,
			Platforms:      []versionfile.Platform{"iOS"},
			LocalToolchain: "",
		},
	}

	overlay, path, err := findOverlay(wd)
	if err != nil {
		return nil, err
	}
	if overlay != nil {
		if err := applyOverlay(&c.Config, path); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func findOverlay(start string) (os.FileInfo, string, error) {
	dir := start
	for {
		path := filepath.Join(dir, overlayFileName)
		info, err := os.Stat(path)
		if err == nil {
			return info, path, nil
		}
		if !os.IsNotExist(err) {
			return nil, "", errors.Wrapf(err, "checking for %s", path)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, "", nil
		}
		dir = parent
	}
}

func applyOverlay(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading %s", path)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "parsing %s", path)
	}
	return nil
}
