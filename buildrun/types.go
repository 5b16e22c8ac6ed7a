// Package buildrun is the build orchestrator: given a dependency's
// checked-out working copy, it locates buildable projects, enumerates
// and filters schemes, builds each against the requested platforms,
// merges per-SDK outputs into fat binaries, post-processes the
// result, and consults/writes the versionfile build cache so
// unchanged dependencies are skipped. Progress is reported as a typed
// Event stream rather than free-form log lines.
package buildrun

import "github.com/depforge/depforge/versionfile"

// ProjectKind discriminates a workspace from a plain project.
type ProjectKind int

const (
	KindProject ProjectKind = iota
	KindWorkspace
)

// ProjectRef is one locatable project or workspace file.
type ProjectRef struct {
	Kind  ProjectKind
	Path  string
	Depth int
}

// SDK is a build destination the external build tool understands
// (e.g. "iphoneos", "iphonesimulator").
type SDK string

// Scheme is one buildable scheme, already filtered to dynamic-
// framework schemes supporting at least one requested platform.
type Scheme struct {
	Name     string
	Project  ProjectRef
	SDKs     []SDK
	Platform versionfile.Platform
}

// EventKind names one of the ordered progress events the orchestrator
// emits.
type EventKind string

const (
	EventCloning                    EventKind = "Cloning"
	EventFetching                   EventKind = "Fetching"
	EventDownloadingBinaries        EventKind = "DownloadingBinaries"
	EventSkippedDownloadingBinaries EventKind = "SkippedDownloadingBinaries"
	EventCheckingOut                EventKind = "CheckingOut"
	EventBuilding                   EventKind = "Building"
	EventCached                     EventKind = "Cached"
	EventBuilt                      EventKind = "Built"
	EventFailed                     EventKind = "Failed"
)

// Event is one entry in the orchestrator's causally-ordered progress
// stream: events from different dependencies may interleave, but
// events within one dependency never do.
type Event struct {
	Kind     EventKind
	Dep      string
	Scheme   string
	Platform versionfile.Platform
	Reason   string
}
