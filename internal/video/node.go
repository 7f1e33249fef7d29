// Package video defines the node tree a build operates on: leaf nodes
// generated from text or images, imported files, transitions, and
// composites that concatenate ordered children.
package video

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"promptreel/internal/model"
)

// State tracks a node through its build lifecycle.
type State int

const (
	StateCreated State = iota
	StatePrepared
	StateBuilding
	StateBuilt
	StateFinalized
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StatePrepared:
		return "prepared"
	case StateBuilding:
		return "building"
	case StateBuilt:
		return "built"
	case StateFinalized:
		return "finalized"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Node is the sealed variant over all video node kinds. Concrete types
// are RawText, RawImage, Imported, Transition, Composite and
// PromptBased; nothing outside this package implements it.
type Node interface {
	// Base exposes the shared mutable state (id, media URL, metadata,
	// lifecycle). Handlers operate on it.
	Base() *Base

	// ShortTypeName is the stable type token embedded in file names.
	ShortTypeName() string

	// Title returns the display title, deriving one from the node's
	// content when none was set.
	Title() string

	// Dependencies lists nodes that must be built before this one,
	// beyond composite children.
	Dependencies() []Node

	// PrepareBuild binds settings to the node and its subtree and
	// moves Created nodes to Prepared. Idempotent.
	PrepareBuild(ctx context.Context, settings model.BuildSettings) error

	sealed()
}

// Base carries the state common to every node variant.
type Base struct {
	id          string
	topParentID string
	title       string
	mediaURL    string
	durationS   float64

	needsReencoding bool
	generated       bool

	meta     model.Metadata
	settings model.BuildSettings
	state    State
	failure  error
}

func newBase() Base {
	id := uuid.NewString()
	return Base{
		id:          id,
		topParentID: id,
		meta:        model.Metadata{ID: id, TopParentID: id},
	}
}

func (b *Base) ID() string          { return b.id }
func (b *Base) TopParentID() string { return b.topParentID }
func (b *Base) MediaURL() string    { return b.mediaURL }
func (b *Base) DurationS() float64  { return b.durationS }
func (b *Base) State() State        { return b.state }
func (b *Base) Failure() error      { return b.failure }

// NeedsReencoding reports whether the node's media must pass through a
// normalizing re-encode (set for imported files, propagated upward).
func (b *Base) NeedsReencoding() bool { return b.needsReencoding }

// IsGenerated reports whether the node's media has been produced. Once
// true a build short-circuits.
func (b *Base) IsGenerated() bool { return b.generated }

// Metadata returns a copy of the node's metadata.
func (b *Base) Metadata() model.Metadata { return b.meta }

// Settings returns the build settings bound at prepare time.
func (b *Base) Settings() model.BuildSettings { return b.settings }

// SetMediaURL records the node's current media file. Each handler in
// the pipeline moves it forward to its own output.
func (b *Base) SetMediaURL(path string) { b.mediaURL = path }

// SetDuration records the probed duration of the node's media.
func (b *Base) SetDuration(seconds float64) {
	b.durationS = seconds
	b.meta.DurationS = seconds
}

// SetTitle overrides the derived title (e.g. with an inferred summary).
func (b *Base) SetTitle(t string) {
	b.title = t
	b.meta.Title = t
}

// Metadata flags are monotone: the mark methods only ever set true.

func (b *Base) MarkGenerated() {
	b.generated = true
	b.meta.IsVideoGenerated = true
}

func (b *Base) MarkInterpolated()   { b.meta.IsInterpolated = true }
func (b *Base) MarkReencoded()      { b.meta.IsReencoded = true }
func (b *Base) MarkBgMusicApplied() { b.meta.IsBgMusicApplied = true }

func (b *Base) MarkBgMusicGenerated() {
	b.meta.IsBgMusicApplied = true
	b.meta.IsBgMusicGenerated = true
}
func (b *Base) MarkReadAloud() { b.meta.IsPromptReadAloud = true }

// SetDimensions records the probed frame size.
func (b *Base) SetDimensions(w, h int) {
	b.meta.Width = w
	b.meta.Height = h
}

// Transition moves the node through the lifecycle. Invalid transitions
// indicate a planner bug and are rejected.
func (b *Base) Transition(to State) error {
	switch {
	case to == b.state:
		return nil
	case to == StateFailed:
	case to == StatePrepared && b.state == StateCreated:
	case to == StateBuilding && b.state == StatePrepared:
	case to == StateBuilt && b.state == StateBuilding:
	case to == StateFinalized && b.state == StateBuilt:
	default:
		return fmt.Errorf("invalid state transition %s -> %s", b.state, to)
	}
	b.state = to
	return nil
}

// MarkFailed puts the node into the terminal failed state.
func (b *Base) MarkFailed(err error) {
	b.failure = err
	b.state = StateFailed
}

func (b *Base) setTopParent(id string) {
	b.topParentID = id
	b.meta.TopParentID = id
}

// prepare binds settings and advances Created -> Prepared.
func (b *Base) prepare(settings model.BuildSettings) {
	b.settings = settings
	if b.state == StateCreated {
		b.state = StatePrepared
	}
}
