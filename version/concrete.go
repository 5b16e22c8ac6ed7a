package version

// Concrete pairs a revision with its optional semantic version, as
// discovered from a dependency retriever. A nil SemVer means the revision
// is non-semantic (branch-like).
type Concrete struct {
	Revision PinnedRevision
	SemVer   *SemVer
}

// Less orders semantic versions before non-semantic ones; among semantic
// versions, descending (newest first); among non-semantic, ascending
// lexicographic by revision string. This is the order the resolver
// tries candidates in ("pick latest compatible" by default).
func (c Concrete) Less(o Concrete) bool {
	switch {
	case c.SemVer != nil && o.SemVer != nil:
		return o.SemVer.Less(*c.SemVer)
	case c.SemVer != nil:
		return true
	case o.SemVer != nil:
		return false
	default:
		return c.Revision.Less(o.Revision)
	}
}

// Satisfies reports whether spec admits c.
func (c Concrete) Satisfies(spec Spec) bool {
	return spec.Satisfies(c.Revision, c.SemVer)
}
