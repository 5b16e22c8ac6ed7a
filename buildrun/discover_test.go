package buildrun

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLocateProjectsOrdering(t *testing.T) {
	root := t.TempDir()
	mustMkdir(t, filepath.Join(root, "Sub", "Nested.xcodeproj"))
	mustMkdir(t, filepath.Join(root, "Top.xcworkspace"))
	mustMkdir(t, filepath.Join(root, "Top.xcodeproj"))
	mustMkdir(t, filepath.Join(root, "Carthage", "Checkouts", "Other.xcodeproj"))

	projs, err := LocateProjects(root)
	if err != nil {
		t.Fatalf("LocateProjects: %v", err)
	}
	if len(projs) != 3 {
		t.Fatalf("expected 3 projects (Carthage subtree skipped), got %d: %+v", len(projs), projs)
	}
	if projs[0].Kind != KindWorkspace {
		t.Fatalf("expected workspace first at shallowest depth, got %+v", projs[0])
	}
	if projs[1].Kind != KindProject || projs[1].Depth != 0 {
		t.Fatalf("expected Top.xcodeproj second, got %+v", projs[1])
	}
	if projs[2].Depth != 1 {
		t.Fatalf("expected nested project last, got %+v", projs[2])
	}
}

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
}
