package fsutil

import (
	"io"
	"os"
	"path/filepath"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"
)

// manualCopyTree is the plain-walk-and-copy fallback CopyTree uses
// when go-shutil's fast path fails.
func manualCopyTree(src, dst string) error {
	return godirwalk.Walk(src, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			rel, err := filepath.Rel(src, path)
			if err != nil {
				return err
			}
			target := filepath.Join(dst, rel)

			if de.IsDir() {
				return os.MkdirAll(target, 0755)
			}
			return copyFile(path, target)
		},
	})
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// Enumerate lists every entry under root except those skip rejects; a
// rejected directory's subtree is not descended into. Used by buildrun's
// project discovery to avoid walking into build output or nested
// dependency clones.
func Enumerate(root string, skip func(path string, isDir bool) bool) ([]string, error) {
	var out []string
	err := godirwalk.Walk(root, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if skip != nil && skip(path, de.IsDir()) {
				if de.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			out = append(out, path)
			return nil
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "enumerating %s", root)
	}
	return out, nil
}
