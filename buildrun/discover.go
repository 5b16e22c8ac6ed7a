package buildrun

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/depforge/depforge/internal/fsutil"
)

// LocateProjects walks root looking for workspace/project files,
// skipping submodules and dependency checkouts, ordered
// shallower-first, workspaces before projects at equal depth, then
// lexicographically by path.
func LocateProjects(root string) ([]ProjectRef, error) {
	entries, err := fsutil.Enumerate(root, func(path string, isDir bool) bool {
		base := filepath.Base(path)
		if isDir && (base == ".git" || base == "Carthage" || base == "Submodules") {
			return true
		}
		return false
	})
	if err != nil {
		return nil, err
	}

	var out []ProjectRef
	for _, e := range entries {
		rel, err := filepath.Rel(root, e)
		if err != nil {
			continue
		}
		depth := strings.Count(rel, string(filepath.Separator))
		switch {
		case strings.HasSuffix(e, ".xcworkspace"):
			out = append(out, ProjectRef{Kind: KindWorkspace, Path: e, Depth: depth})
		case strings.HasSuffix(e, ".xcodeproj"):
			out = append(out, ProjectRef{Kind: KindProject, Path: e, Depth: depth})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		if a.Kind != b.Kind {
			return a.Kind == KindWorkspace
		}
		return a.Path < b.Path
	})
	return out, nil
}
