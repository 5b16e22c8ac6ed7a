// Package source is the repository coordinator: it serializes git
// operations per dependency while letting independent dependencies
// clone/fetch concurrently, and implements retriever.Retriever so the
// resolver can ask it for versions and manifest requirements directly.
// Built on Masterminds/vcs, narrowed to git only since Dependency
// (depid) only ever names git-style remotes.
package source

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/vcs"
	"github.com/pkg/errors"

	"github.com/depforge/depforge/depid"
	"github.com/depforge/depforge/manifest"
	"github.com/depforge/depforge/retriever"
	"github.com/depforge/depforge/version"
)

// gitRepo adds context-cancellable operations on top of *vcs.GitRepo.
type gitRepo struct {
	*vcs.GitRepo
}

func openGitRepo(remote, local string) (*gitRepo, error) {
	r, err := vcs.NewGitRepo(remote, local)
	if err != nil {
		return nil, err
	}
	return &gitRepo{r}, nil
}

func (r *gitRepo) clone(ctx context.Context) error {
	cmd := runCmd(ctx, "", "git", "clone", "--recursive", r.Remote(), r.LocalPath())
	if out, err := cmd.CombinedOutput(); err != nil {
		return vcs.NewRemoteError("unable to clone repository", errors.Wrap(err, "git clone"), string(out))
	}
	return nil
}

func (r *gitRepo) fetch(ctx context.Context) error {
	cmd := runCmd(ctx, r.LocalPath(), "git", "fetch", "--tags", "--prune", "origin")
	if out, err := cmd.CombinedOutput(); err != nil {
		return vcs.NewRemoteError("unable to fetch repository", errors.Wrap(err, "git fetch"), string(out))
	}
	return nil
}

func (r *gitRepo) checkout(ctx context.Context, rev string) error {
	cmd := runCmd(ctx, r.LocalPath(), "git", "checkout", rev)
	if out, err := cmd.CombinedOutput(); err != nil {
		return vcs.NewLocalError("unable to check out revision", errors.Wrap(err, "git checkout"), string(out))
	}
	return nil
}

// tags lists every tag in the repo, oldest operation being a plain
// `git tag`, matching vcs.GitRepo.Tags()'s own implementation shape
// but run under ctx so cancellation propagates.
func (r *gitRepo) tags(ctx context.Context) ([]string, error) {
	cmd := runCmd(ctx, r.LocalPath(), "git", "tag")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, vcs.NewLocalError("unable to list tags", errors.Wrap(err, "git tag"), string(out))
	}
	var tags []string
	for _, l := range strings.Split(string(out), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			tags = append(tags, l)
		}
	}
	return tags, nil
}

func (r *gitRepo) resolveRef(ctx context.Context, ref string) (string, error) {
	cmd := runCmd(ctx, r.LocalPath(), "git", "rev-parse", ref)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", vcs.NewLocalError("unable to resolve ref", errors.Wrap(err, "git rev-parse"), string(out))
	}
	return strings.TrimSpace(string(out)), nil
}

// Coordinator materializes Dependency clones under a cache root,
// serializing operations per dependency via perDepQueue and
// implementing retriever.Remote over the checked-out tree.
type Coordinator struct {
	cacheRoot  string
	rewriteSSH bool
	queues     *perDepQueue
}

// New builds a Coordinator rooted at cacheRoot; clones live under
// <cacheRoot>/dependencies. rewriteSSH controls whether hosted
// Dependency remotes are cloned over SSH instead of HTTPS.
func New(cacheRoot string, rewriteSSH bool) *Coordinator {
	return &Coordinator{cacheRoot: cacheRoot, rewriteSSH: rewriteSSH, queues: newPerDepQueue()}
}

func (c *Coordinator) localPath(dep depid.Dependency) string {
	return filepath.Join(c.cacheRoot, "dependencies", dep.ClonePath())
}

// ensureCloned clones dep if its local path doesn't exist yet, or
// fetches if it does, serialized per-dependency by perDepQueue so two
// resolver goroutines never race on the same working tree.
func (c *Coordinator) ensureCloned(ctx context.Context, dep depid.Dependency) (*gitRepo, error) {
	local := c.localPath(dep)
	r, err := openGitRepo(dep.RemoteURL(c.rewriteSSH), local)
	if err != nil {
		return nil, errors.Wrapf(err, "opening repo for %s", dep)
	}

	if _, err := os.Stat(local); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(local), 0755); err != nil {
			return nil, errors.Wrapf(err, "creating clone directory for %s", dep)
		}
		if err := r.clone(ctx); err != nil {
			return nil, errors.Wrapf(err, "cloning %s", dep)
		}
		return r, nil
	}

	if err := r.fetch(ctx); err != nil {
		return nil, errors.Wrapf(err, "fetching %s", dep)
	}
	return r, nil
}

// VersionsFor implements retriever.Retriever: lists tags as semantic
// candidates (those that parse) and falls back to treating unparsed
// tags as non-semantic.
func (c *Coordinator) VersionsFor(ctx context.Context, dep depid.Dependency) ([]version.Concrete, error) {
	var out []version.Concrete
	err := c.queues.Run(dep, func() error {
		r, err := c.ensureCloned(ctx, dep)
		if err != nil {
			return err
		}
		tags, err := r.tags(ctx)
		if err != nil {
			return err
		}
		for _, tag := range tags {
			rev, err := r.resolveRef(ctx, tag)
			if err != nil {
				continue
			}
			if sv, err := version.ParseSemVer(tag); err == nil {
				out = append(out, version.Concrete{Revision: version.PinnedRevision(rev), SemVer: &sv})
			} else {
				out = append(out, version.Concrete{Revision: version.PinnedRevision(rev)})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out, nil
}

// DependenciesFor implements retriever.Remote: checks out rev and
// parses its manifest (and private-manifest overlay, if present).
func (c *Coordinator) DependenciesFor(ctx context.Context, dep depid.Dependency, rev version.PinnedRevision) (retriever.DependencyList, error) {
	var dl retriever.DependencyList
	err := c.queues.Run(dep, func() error {
		r, err := c.ensureCloned(ctx, dep)
		if err != nil {
			return err
		}
		if err := r.checkout(ctx, string(rev)); err != nil {
			return err
		}

		entries, err := readManifestAt(r.LocalPath())
		if err != nil {
			return err
		}
		dl.Revision = rev
		for _, e := range entries {
			dl.Requires = append(dl.Requires, retriever.Requirement{Dep: e.Dep, Spec: e.Spec})
		}
		return nil
	})
	return dl, err
}

// ResolveGitRef implements retriever.Remote, pinning a branch/tag/SHA
// prefix to a full commit hash.
func (c *Coordinator) ResolveGitRef(ctx context.Context, dep depid.Dependency, ref string) (version.PinnedRevision, error) {
	var rev version.PinnedRevision
	err := c.queues.Run(dep, func() error {
		r, err := c.ensureCloned(ctx, dep)
		if err != nil {
			return err
		}
		full, err := r.resolveRef(ctx, ref)
		if err != nil {
			return err
		}
		rev = version.PinnedRevision(full)
		return nil
	})
	return rev, err
}

// Checkout materializes dep's working copy at rev, cloning or
// fetching as needed, and returns the local path a build step should
// read from. Exposed for `depforge checkout`, which drives this
// directly instead of going through DependenciesFor (whose checkout is
// just a means to reading the manifest, not a guarantee about what's
// left on disk afterward).
func (c *Coordinator) Checkout(ctx context.Context, dep depid.Dependency, rev version.PinnedRevision) (string, error) {
	var path string
	err := c.queues.Run(dep, func() error {
		r, err := c.ensureCloned(ctx, dep)
		if err != nil {
			return err
		}
		if err := r.checkout(ctx, string(rev)); err != nil {
			return err
		}
		path = r.LocalPath()
		return nil
	})
	return path, err
}

func readManifestAt(dir string) ([]manifest.Entry, error) {
	pub, err := os.Open(filepath.Join(dir, "depforge.manifest"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "opening manifest in %s", dir)
	}
	defer pub.Close()

	priv, err := os.Open(filepath.Join(dir, "depforge.manifest.private"))
	if os.IsNotExist(err) {
		m, err := manifest.Parse(pub)
		return m, errors.Wrap(err, "parsing manifest")
	}
	if err != nil {
		return nil, errors.Wrapf(err, "opening private manifest in %s", dir)
	}
	defer priv.Close()

	m, err := manifest.ParseAndMerge(pub, priv)
	if err != nil {
		return nil, err
	}
	return m.Entries, nil
}
