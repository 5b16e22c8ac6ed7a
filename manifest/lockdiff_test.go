package manifest

import (
	"strings"
	"testing"
)

func mustLock(t *testing.T, text string) *Lock {
	t.Helper()
	l, err := ParseLock(strings.NewReader(text))
	if err != nil {
		t.Fatalf("ParseLock: %v", err)
	}
	return l
}

func TestDiffLocksNoChange(t *testing.T) {
	a := mustLock(t, `github "owner/repo" "1.0.0"`)
	b := mustLock(t, `github "owner/repo" "1.0.0"`)
	if d := DiffLocks(a, b); d != nil {
		t.Fatalf("expected nil diff for identical locks, got %+v", d)
	}
}

func TestDiffLocksAddedRemovedChanged(t *testing.T) {
	before := mustLock(t, "github \"owner/repo\" \"1.0.0\"\ngithub \"owner/gone\" \"1.0.0\"\n")
	after := mustLock(t, "github \"owner/repo\" \"1.1.0\"\ngithub \"owner/new\" \"1.0.0\"\n")

	d := DiffLocks(before, after)
	if d == nil {
		t.Fatal("expected non-nil diff")
	}
	if len(d.Added) != 1 || d.Added[0] != "github.com/owner/new" {
		t.Fatalf("unexpected Added: %v", d.Added)
	}
	if len(d.Removed) != 1 || d.Removed[0] != "github.com/owner/gone" {
		t.Fatalf("unexpected Removed: %v", d.Removed)
	}
	if len(d.Changed) != 1 || d.Changed[0].Identity != "github.com/owner/repo" || d.Changed[0].From != "1.0.0" || d.Changed[0].To != "1.1.0" {
		t.Fatalf("unexpected Changed: %v", d.Changed)
	}
}

func TestDiffLocksNilBefore(t *testing.T) {
	after := mustLock(t, `github "owner/repo" "1.0.0"`)
	d := DiffLocks(nil, after)
	if d == nil || len(d.Added) != 1 {
		t.Fatalf("expected one added entry from nil before, got %+v", d)
	}
}
