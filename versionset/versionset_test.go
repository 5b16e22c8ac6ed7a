package versionset

import (
	"testing"

	"github.com/depforge/depforge/version"
)

func sv(t *testing.T, raw string) version.SemVer {
	t.Helper()
	v, err := version.ParseSemVer(raw)
	if err != nil {
		t.Fatalf("ParseSemVer(%q): %v", raw, err)
	}
	return v
}

func conc(t *testing.T, raw string) version.Concrete {
	v := sv(t, raw)
	return version.Concrete{Revision: version.PinnedRevision(raw), SemVer: &v}
}

func branch(rev string) version.Concrete {
	return version.Concrete{Revision: version.PinnedRevision(rev)}
}

func TestOrderingNewestFirst(t *testing.T) {
	s := New([]version.Concrete{conc(t, "1.0.0"), conc(t, "2.0.0"), conc(t, "1.5.0")})
	want := []string{"2.0.0", "1.5.0", "1.0.0"}
	for i, w := range want {
		if string(s.All()[i].Revision) != w {
			t.Fatalf("order[%d] = %s, want %s", i, s.All()[i].Revision, w)
		}
	}
}

func TestBranchesSortAfterSemver(t *testing.T) {
	s := New([]version.Concrete{branch("zeta"), conc(t, "1.0.0"), branch("alpha")})
	all := s.All()
	if string(all[0].Revision) != "1.0.0" {
		t.Fatalf("expected semver first, got %s", all[0].Revision)
	}
	if string(all[1].Revision) != "alpha" || string(all[2].Revision) != "zeta" {
		t.Fatalf("expected lexicographic branch order, got %v %v", all[1].Revision, all[2].Revision)
	}
}

func TestRetainCompatibleWithAnyIsIdentity(t *testing.T) {
	s := New([]version.Concrete{conc(t, "1.0.0"), conc(t, "2.0.0"), branch("dev")})
	before := s.Len()
	s.RetainCompatibleWith(version.Any())
	if s.Len() != before {
		t.Fatalf("RetainCompatibleWith(Any) should be a no-op, len changed %d -> %d", before, s.Len())
	}
}

func TestRetainCompatibleWithNarrows(t *testing.T) {
	s := New([]version.Concrete{conc(t, "1.1.0"), conc(t, "1.2.0"), conc(t, "1.2.1"), conc(t, "2.0.0")})
	s.RetainCompatibleWith(version.CompatibleWith(sv(t, "1.2.0")))
	got := s.All()
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates left, got %d: %v", len(got), got)
	}
	if string(got[0].Revision) != "1.2.1" || string(got[1].Revision) != "1.2.0" {
		t.Fatalf("unexpected surviving candidates: %v", got)
	}
}

func TestRetainCompatibleKeepsBranchFallbacks(t *testing.T) {
	s := New([]version.Concrete{conc(t, "1.0.0"), conc(t, "5.0.0"), branch("feature-x")})
	s.RetainCompatibleWith(version.CompatibleWith(sv(t, "1.0.0")))
	found := false
	for _, c := range s.All() {
		if c.Revision == "feature-x" {
			found = true
		}
	}
	if !found {
		t.Error("non-semantic candidate should survive RetainCompatibleWith regardless of numeric bounds")
	}
}

func TestRetainOnly(t *testing.T) {
	s := New([]version.Concrete{conc(t, "1.0.0"), conc(t, "2.0.0")})
	head, _ := s.Head()
	s.RetainOnly(head)
	if s.Len() != 1 {
		t.Fatalf("expected 1 after RetainOnly, got %d", s.Len())
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := New([]version.Concrete{conc(t, "1.0.0"), conc(t, "2.0.0")})
	c := s.Clone()
	c.RetainOnly(conc(t, "1.0.0"))
	if s.Len() == c.Len() {
		t.Fatal("mutating clone should not affect original")
	}
}
