package version

import "testing"

func TestParseSemVerPrefixes(t *testing.T) {
	for _, raw := range []string{"1.2.3", "v1.2.3", "version-1.2.3"} {
		sv, err := ParseSemVer(raw)
		if err != nil {
			t.Fatalf("ParseSemVer(%q): %v", raw, err)
		}
		if sv.Major() != 1 || sv.Minor() != 2 || sv.Patch() != 3 {
			t.Errorf("ParseSemVer(%q) = %+v, want 1.2.3", raw, sv)
		}
	}
}

func TestParseSemVerRejectsLeadingZero(t *testing.T) {
	for _, raw := range []string{"1.02.3", "01.2.3", "1.2.3-alpha.01"} {
		if _, err := ParseSemVer(raw); err == nil {
			t.Errorf("ParseSemVer(%q) should have failed on leading zero", raw)
		}
	}
}

func TestParseSemVerRejectsEmptySegment(t *testing.T) {
	for _, raw := range []string{"1..3", "1.2.", ".2.3", "1.2.3-"} {
		if _, err := ParseSemVer(raw); err == nil {
			t.Errorf("ParseSemVer(%q) should have failed on empty segment", raw)
		}
	}
}

func TestPrereleasePrecedence(t *testing.T) {
	order := []string{
		"1.0.0-alpha",
		"1.0.0-alpha.1",
		"1.0.0-alpha.beta",
		"1.0.0-beta",
		"1.0.0",
		"1.0.1",
	}
	var parsed []SemVer
	for _, raw := range order {
		sv, err := ParseSemVer(raw)
		if err != nil {
			t.Fatalf("ParseSemVer(%q): %v", raw, err)
		}
		parsed = append(parsed, sv)
	}
	for i := 1; i < len(parsed); i++ {
		if !parsed[i-1].Less(parsed[i]) {
			t.Errorf("expected %s < %s", parsed[i-1], parsed[i])
		}
	}
}

func mustParse(t *testing.T, raw string) SemVer {
	t.Helper()
	sv, err := ParseSemVer(raw)
	if err != nil {
		t.Fatalf("ParseSemVer(%q): %v", raw, err)
	}
	return sv
}

func TestAnySatisfaction(t *testing.T) {
	any := Any()
	v := mustParse(t, "1.0.0")
	if !any.Satisfies("1.0.0", &v) {
		t.Error("Any should admit a non-pre-release semver")
	}
	pre := mustParse(t, "1.0.0-alpha")
	if any.Satisfies("1.0.0-alpha", &pre) {
		t.Error("Any should not admit a pre-release")
	}
	if !any.Satisfies("feature-branch", nil) {
		t.Error("Any should admit a non-semantic revision")
	}
}

func TestCompatibleWithBoundaries(t *testing.T) {
	ref := mustParse(t, "1.2.3")
	spec := CompatibleWith(ref)

	admits := mustParse(t, "1.9.9")
	if !spec.Satisfies("1.9.9", &admits) {
		t.Error("~> 1.2.3 should admit 1.9.9")
	}
	rejects := mustParse(t, "2.0.0")
	if spec.Satisfies("2.0.0", &rejects) {
		t.Error("~> 1.2.3 should reject 2.0.0")
	}

	zero := CompatibleWith(mustParse(t, "0.3.0"))
	okZ := mustParse(t, "0.3.9")
	if !zero.Satisfies("0.3.9", &okZ) {
		t.Error("~> 0.3.0 should admit 0.3.9")
	}
	badZ := mustParse(t, "0.4.0")
	if zero.Satisfies("0.4.0", &badZ) {
		t.Error("~> 0.3.0 should reject 0.4.0")
	}
}

func TestIntersectionCommutative(t *testing.T) {
	a := AtLeast(mustParse(t, "1.0.0"))
	b := CompatibleWith(mustParse(t, "1.2.0"))

	ab, okAB := Intersect(a, b)
	ba, okBA := Intersect(b, a)
	if okAB != okBA {
		t.Fatalf("intersection ok mismatch: %v vs %v", okAB, okBA)
	}
	if okAB && ab.String() != ba.String() {
		t.Errorf("intersection not commutative: %s vs %s", ab, ba)
	}
}

func TestIntersectionIncompatibleMajors(t *testing.T) {
	a := CompatibleWith(mustParse(t, "1.0.0"))
	b := CompatibleWith(mustParse(t, "2.0.0"))
	if _, ok := Intersect(a, b); ok {
		t.Error("CompatibleWith(1.x) and CompatibleWith(2.x) should not intersect")
	}
}

func TestIntersectionGitRef(t *testing.T) {
	if _, ok := Intersect(GitRef("a"), GitRef("b")); ok {
		t.Error("distinct git refs should not intersect")
	}
	if r, ok := Intersect(GitRef("a"), GitRef("a")); !ok || r.GitRefName() != "a" {
		t.Error("identical git refs should intersect to themselves")
	}
}

func TestParseSpecRoundTrip(t *testing.T) {
	cases := []string{"", ">= 1.2.3", "~> 1.2.3", "== 1.2.3", `"my-branch"`}
	for _, raw := range cases {
		spec, err := ParseSpec(raw)
		if err != nil {
			t.Fatalf("ParseSpec(%q): %v", raw, err)
		}
		if got := spec.String(); got != raw {
			t.Errorf("ParseSpec(%q).String() = %q", raw, got)
		}
	}
}
