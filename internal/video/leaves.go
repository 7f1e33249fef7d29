package video

import (
	"context"
	"errors"
	"strings"

	"promptreel/internal/model"
)

// RawText is a leaf generated from a text prompt by the media gateway.
type RawText struct {
	base Base

	// TextPrompt is the generation prompt for this clip.
	TextPrompt string
}

// NewRawText creates a text-prompt leaf.
func NewRawText(text string) *RawText {
	return &RawText{base: newBase(), TextPrompt: text}
}

func (n *RawText) Base() *Base           { return &n.base }
func (n *RawText) ShortTypeName() string { return TypeRawText }
func (n *RawText) Dependencies() []Node  { return nil }
func (n *RawText) sealed()               {}

func (n *RawText) Title() string {
	if n.base.title != "" {
		return n.base.title
	}
	return titleFromText(n.TextPrompt)
}

func (n *RawText) PrepareBuild(_ context.Context, settings model.BuildSettings) error {
	if strings.TrimSpace(n.TextPrompt) == "" {
		return errors.New("raw text node: empty prompt")
	}
	n.base.prepare(settings)
	return nil
}

// RawImage is a leaf generated from a still image by the media gateway.
type RawImage struct {
	base Base

	// ImagePath points at the source image on disk.
	ImagePath string
}

// NewRawImage creates an image-prompt leaf.
func NewRawImage(imagePath string) *RawImage {
	return &RawImage{base: newBase(), ImagePath: imagePath}
}

func (n *RawImage) Base() *Base           { return &n.base }
func (n *RawImage) ShortTypeName() string { return TypeRawImage }
func (n *RawImage) Dependencies() []Node  { return nil }
func (n *RawImage) sealed()               {}

func (n *RawImage) Title() string {
	if n.base.title != "" {
		return n.base.title
	}
	return "image"
}

func (n *RawImage) PrepareBuild(_ context.Context, settings model.BuildSettings) error {
	if n.ImagePath == "" {
		return errors.New("raw image node: empty image path")
	}
	n.base.prepare(settings)
	return nil
}

// Imported wraps an existing local media file. It needs no generation
// but forces a normalizing re-encode on every ancestor composite.
type Imported struct {
	base Base

	LocalFilePath string
}

// NewImported creates a leaf around an existing file.
func NewImported(path string) *Imported {
	n := &Imported{base: newBase(), LocalFilePath: path}
	n.base.needsReencoding = true
	n.base.SetMediaURL(path)
	n.base.MarkGenerated()
	return n
}

func (n *Imported) Base() *Base           { return &n.base }
func (n *Imported) ShortTypeName() string { return TypeImported }
func (n *Imported) Dependencies() []Node  { return nil }
func (n *Imported) sealed()               {}

func (n *Imported) Title() string {
	if n.base.title != "" {
		return n.base.title
	}
	return "imported"
}

func (n *Imported) PrepareBuild(_ context.Context, settings model.BuildSettings) error {
	if n.LocalFilePath == "" {
		return errors.New("imported node: empty file path")
	}
	n.base.prepare(settings)
	return nil
}

// Transition bridges two sibling clips. It holds weak references to its
// endpoints: it consumes their media but the containing composite owns
// them, and the resolver reaches them through Dependencies, never
// through a child list.
type Transition struct {
	base Base

	Source Node
	Target Node
}

// NewTransition creates a transition between two endpoint nodes.
func NewTransition(source, target Node) *Transition {
	return &Transition{base: newBase(), Source: source, Target: target}
}

func (n *Transition) Base() *Base           { return &n.base }
func (n *Transition) ShortTypeName() string { return TypeTransition }
func (n *Transition) Dependencies() []Node  { return []Node{n.Source, n.Target} }
func (n *Transition) sealed()               {}

func (n *Transition) Title() string {
	if n.base.title != "" {
		return n.base.title
	}
	return "transition"
}

func (n *Transition) PrepareBuild(_ context.Context, settings model.BuildSettings) error {
	if n.Source == nil || n.Target == nil {
		return errors.New("transition node: missing endpoint")
	}
	n.base.prepare(settings)
	return nil
}

// titleFromText derives a short stable title from prompt text: the
// first few words, lowercased.
func titleFromText(text string) string {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return "untitled"
	}
	if len(words) > 5 {
		words = words[:5]
	}
	return strings.Join(words, " ")
}
