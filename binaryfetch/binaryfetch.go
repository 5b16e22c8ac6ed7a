// Package binaryfetch implements the binary-artifact fetcher: for a
// dependency whose host exposes GitHub-style release metadata,
// download and unpack the framework-bundle asset matching a pinned tag
// instead of building from source. The package does not fall back to a
// source checkout itself: fetch and download failures are returned as
// errors. Built on google/go-github, with a small client wrapper plus a
// content-addressed local cache for anything downloaded.
package binaryfetch

import (
	"context"
	"crypto/tls"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/go-github/v57/github"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/depforge/depforge/depid"
)

// bundlePatterns recognizes a framework-bundle asset by filename.
var bundlePatterns = []string{".framework", ".xcframework"}

// mimeAllowlist is the set of declared asset MIME types this fetcher
// will consider downloading.
var mimeAllowlist = map[string]bool{
	"application/zip":             true,
	"application/x-zip-compressed": true,
	"application/octet-stream":    true,
}

// Fetcher downloads and caches release-asset binaries for hosted
// dependencies.
type Fetcher struct {
	client    *github.Client
	cacheRoot string
}

// New builds a Fetcher. token, if non-empty, authenticates requests
// via oauth2's static token source; an empty token leaves the client
// unauthenticated (anonymous GitHub API rate limits apply).
func New(ctx context.Context, cacheRoot, token string) *Fetcher {
	var hc *http.Client
	if token != "" {
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	} else {
		hc = &http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12}}}
	}
	return &Fetcher{client: github.NewClient(hc), cacheRoot: cacheRoot}
}

// Asset is one downloaded, allow-listed release asset ready to unpack.
type Asset struct {
	ID       int64
	Name     string
	CachePath string
}

// FetchRelease locates the non-draft release matching tag exactly,
// filters its assets to recognized framework bundles with an
// allow-listed MIME type, and downloads any not already cached,
// returning their on-disk cache paths.
func (f *Fetcher) FetchRelease(ctx context.Context, dep depid.Dependency, tag string) ([]Asset, error) {
	if dep.Kind() != depid.Hosted || dep.Host() != "github.com" {
		return nil, errors.Errorf("binary-artifact fetch only supports github.com hosted dependencies, got %s", dep)
	}

	rel, resp, err := f.client.Repositories.GetReleaseByTag(ctx, dep.Owner(), dep.Repo(), tag)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching release %s for %s", tag, dep)
	}
	defer drain(resp)
	if rel.GetDraft() {
		return nil, errors.Errorf("release %s for %s is a draft", tag, dep)
	}

	var out []Asset
	for _, a := range rel.Assets {
		if !isBundleAsset(a.GetName()) {
			continue
		}
		if !mimeAllowlist[normalizeMIME(a.GetContentType())] {
			continue
		}

		cachePath := filepath.Join(f.cacheRoot, "binaries", dep.ClonePath(), tag,
			strconv.FormatInt(a.GetID(), 10)+"-"+a.GetName())
		if _, err := os.Stat(cachePath); err == nil {
			out = append(out, Asset{ID: a.GetID(), Name: a.GetName(), CachePath: cachePath})
			continue
		}

		if err := f.downloadAsset(ctx, dep, a.GetID(), cachePath); err != nil {
			return nil, errors.Wrapf(err, "downloading asset %s for %s@%s", a.GetName(), dep, tag)
		}
		out = append(out, Asset{ID: a.GetID(), Name: a.GetName(), CachePath: cachePath})
	}
	return out, nil
}

// downloadAsset fetches release asset id's bytes into a temp file
// beside cachePath then renames atomically into place. A bearer auth
// header is attempted first; on 401/403 the download retries
// unauthenticated.
func (f *Fetcher) downloadAsset(ctx context.Context, dep depid.Dependency, assetID int64, cachePath string) error {
	if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
		return errors.Wrapf(err, "creating cache directory for %s", cachePath)
	}

	rc, redirect, err := f.client.Repositories.DownloadReleaseAsset(ctx, dep.Owner(), dep.Repo(), assetID, http.DefaultClient)
	if err != nil {
		if isAuthFailure(err) {
			rc, redirect, err = github.NewClient(nil).Repositories.DownloadReleaseAsset(ctx, dep.Owner(), dep.Repo(), assetID, http.DefaultClient)
		}
		if err != nil {
			return err
		}
	}
	if redirect != "" {
		return errors.Errorf("unexpected redirect URL %s without a stream", redirect)
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(filepath.Dir(cachePath), ".asset-*")
	if err != nil {
		return errors.Wrap(err, "creating temp download file")
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		return errors.Wrap(err, "downloading asset")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temp download file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), cachePath), "renaming asset into cache")
}

func isAuthFailure(err error) bool {
	if ge, ok := err.(*github.ErrorResponse); ok {
		return ge.Response.StatusCode == http.StatusUnauthorized || ge.Response.StatusCode == http.StatusForbidden
	}
	return false
}

func isBundleAsset(name string) bool {
	for _, p := range bundlePatterns {
		if strings.Contains(name, p) {
			return true
		}
	}
	return false
}

func normalizeMIME(declared string) string {
	t, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return declared
	}
	return t
}

func drain(resp *github.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
