package version

import (
	"strconv"
	"strings"
)

// PinnedRevision is an opaque commit-ish string: a tag name or a commit
// hash. It orders lexicographically, used only for tie-breaking among
// non-semantic candidates.
type PinnedRevision string

// Less orders two revisions lexicographically.
func (r PinnedRevision) Less(o PinnedRevision) bool { return r < o }

// Kind discriminates the five VersionSpec variants.
type Kind int

const (
	// KindAny admits every semantic version except pre-releases, and
	// every non-semantic revision.
	KindAny Kind = iota
	KindAtLeast
	KindCompatibleWith
	KindExactly
	KindGitRef
)

// Spec is one of Any | AtLeast(R) | CompatibleWith(R) | Exactly(R) |
// GitRef(s). The zero value is KindAny.
type Spec struct {
	kind Kind
	ref  SemVer
	git  string
}

// Any admits every non-pre-release semantic version and every non-semantic
// revision.
func Any() Spec { return Spec{kind: KindAny} }

// AtLeast admits v if v >= ref (special-cased for pre-releases; see
// Satisfies).
func AtLeast(ref SemVer) Spec { return Spec{kind: KindAtLeast, ref: ref} }

// CompatibleWith admits versions "compatible" with ref per Cargo-style
// caret rules: same major (or, pre-1.0, same minor) and >= ref.
func CompatibleWith(ref SemVer) Spec { return Spec{kind: KindCompatibleWith, ref: ref} }

// Exactly admits only ref.
func Exactly(ref SemVer) Spec { return Spec{kind: KindExactly, ref: ref} }

// GitRef admits everything; the reference is resolved to a concrete
// revision by the retriever at the moment of use.
func GitRef(ref string) Spec { return Spec{kind: KindGitRef, git: ref} }

// Kind reports which variant s is.
func (s Spec) Kind() Kind { return s.kind }

// Ref returns the reference semver for AtLeast/CompatibleWith/Exactly.
// Only meaningful when Kind() is one of those three.
func (s Spec) Ref() SemVer { return s.ref }

// GitRefName returns the raw ref string for a GitRef spec.
func (s Spec) GitRefName() string { return s.git }

func (s Spec) String() string {
	switch s.kind {
	case KindAny:
		return ""
	case KindAtLeast:
		return ">= " + s.ref.String()
	case KindCompatibleWith:
		return "~> " + s.ref.String()
	case KindExactly:
		return "== " + s.ref.String()
	case KindGitRef:
		return strconv.Quote(s.git)
	default:
		return "<invalid spec>"
	}
}

// TypedString is like String but disambiguates kinds whose rendering would
// otherwise collide.
func (s Spec) TypedString() string {
	switch s.kind {
	case KindAny:
		return "any:"
	case KindAtLeast:
		return "atleast:" + s.ref.String()
	case KindCompatibleWith:
		return "compat:" + s.ref.String()
	case KindExactly:
		return "exact:" + s.ref.String()
	case KindGitRef:
		return "gitref:" + s.git
	default:
		return "invalid:"
	}
}

// Satisfies reports whether spec admits the candidate (rev, sv). sv is nil
// for a non-semantic (branch-like) revision.
func (s Spec) Satisfies(rev PinnedRevision, sv *SemVer) bool {
	switch s.kind {
	case KindAny:
		if sv == nil {
			return true
		}
		return !sv.IsPrerelease()
	case KindAtLeast:
		if sv == nil {
			return true
		}
		if sv.IsPrerelease() {
			return s.ref.IsPrerelease() && sv.SameMajorMinorPatch(s.ref)
		}
		return !sv.Less(s.ref)
	case KindCompatibleWith:
		if sv == nil {
			return true
		}
		if sv.IsPrerelease() {
			if !s.ref.IsPrerelease() || !sv.SameMajorMinorPatch(s.ref) {
				return false
			}
		}
		if s.ref.Major() > 0 {
			return sv.Major() == s.ref.Major() && !sv.Less(s.ref)
		}
		return sv.Major() == 0 && sv.Minor() == s.ref.Minor() && !sv.Less(s.ref)
	case KindExactly:
		if sv == nil {
			return false
		}
		return sv.Equal(s.ref)
	case KindGitRef:
		return true
	default:
		return false
	}
}

// Intersect computes the spec admitting exactly the intersection of a's and
// b's admitted versions, or reports ok=false if that intersection is empty.
// Total and defined for all sixteen (kind, kind) pairs; commutative,
// idempotent and associative.
func Intersect(a, b Spec) (Spec, bool) {
	// Normalize ordering so we only need to handle each unordered pair
	// once; commutativity falls out for free.
	if a.kind > b.kind {
		a, b = b, a
	}

	switch {
	case a.kind == KindAny && b.kind == KindAny:
		return Any(), true
	case a.kind == KindAny:
		return b, true

	case a.kind == KindAtLeast && b.kind == KindAtLeast:
		if a.ref.Less(b.ref) {
			return b, true
		}
		return a, true

	case a.kind == KindAtLeast && b.kind == KindCompatibleWith:
		return intersectAtLeastCompatible(a, b)
	case a.kind == KindAtLeast && b.kind == KindExactly:
		if b.ref.Less(a.ref) {
			return Spec{}, false
		}
		return b, true
	case a.kind == KindAtLeast && b.kind == KindGitRef:
		return Spec{}, false

	case a.kind == KindCompatibleWith && b.kind == KindCompatibleWith:
		return intersectCompatibleCompatible(a, b)
	case a.kind == KindCompatibleWith && b.kind == KindExactly:
		if a.Satisfies(PinnedRevision(b.ref.String()), &b.ref) {
			return b, true
		}
		return Spec{}, false
	case a.kind == KindCompatibleWith && b.kind == KindGitRef:
		return Spec{}, false

	case a.kind == KindExactly && b.kind == KindExactly:
		if a.ref.Equal(b.ref) {
			return a, true
		}
		return Spec{}, false
	case a.kind == KindExactly && b.kind == KindGitRef:
		return Spec{}, false

	case a.kind == KindGitRef && b.kind == KindGitRef:
		if a.git == b.git {
			return a, true
		}
		return Spec{}, false

	default:
		return Spec{}, false
	}
}

func intersectAtLeastCompatible(atLeast, compat Spec) (Spec, bool) {
	// The combined lower bound is the greater of the two refs; the
	// upper bound comes from compat's major (or, pre-1.0, minor)
	// envelope. The raised lower bound is only valid if it still falls
	// within that envelope.
	lo := atLeast.ref
	if compat.ref.Less(lo) || compat.ref.Equal(lo) {
		// atLeast.ref >= compat.ref: atLeast's ref is the higher of the
		// two lower bounds, so lo stays atLeast.ref.
	} else {
		lo = compat.ref
	}
	if !compat.Satisfies(PinnedRevision(lo.String()), &lo) {
		return Spec{}, false
	}
	return CompatibleWith(lo), true
}

func intersectCompatibleCompatible(a, b Spec) (Spec, bool) {
	if a.ref.Major() != b.ref.Major() {
		return Spec{}, false
	}
	if a.ref.Major() == 0 && a.ref.Minor() != b.ref.Minor() {
		return Spec{}, false
	}
	if a.ref.Less(b.ref) {
		return b, true
	}
	return a, true
}

// ParseSpec parses the manifest grammar for a VersionSpec: "==", ">=",
// "~>" followed by a semver, a quoted git reference, or empty for Any.
func ParseSpec(text string) (Spec, error) {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return Any(), nil
	case strings.HasPrefix(text, "=="):
		sv, err := ParseSemVer(strings.TrimSpace(text[2:]))
		if err != nil {
			return Spec{}, err
		}
		return Exactly(sv), nil
	case strings.HasPrefix(text, ">="):
		sv, err := ParseSemVer(strings.TrimSpace(text[2:]))
		if err != nil {
			return Spec{}, err
		}
		return AtLeast(sv), nil
	case strings.HasPrefix(text, "~>"):
		sv, err := ParseSemVer(strings.TrimSpace(text[2:]))
		if err != nil {
			return Spec{}, err
		}
		return CompatibleWith(sv), nil
	case strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`) && len(text) >= 2:
		ref, err := strconv.Unquote(text)
		if err != nil {
			return Spec{}, &ParseError{Input: text, Column: 1, Reason: "malformed quoted git reference"}
		}
		return GitRef(ref), nil
	default:
		return Spec{}, &ParseError{Input: text, Column: 1, Reason: "unrecognized version spec"}
	}
}
