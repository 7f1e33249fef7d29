package video

import (
	"context"
	"strings"

	"promptreel/internal/model"
)

// Composite concatenates its ordered children into one clip. The root
// composite additionally owns final placement of the build output.
type Composite struct {
	base Base

	children []Node
	root     bool
}

// NewRootComposite creates the composite that owns a whole build tree.
func NewRootComposite() *Composite {
	return &Composite{base: newBase(), root: true}
}

// NewChildComposite creates a composite nested under another one.
func NewChildComposite() *Composite {
	return &Composite{base: newBase()}
}

func (c *Composite) Base() *Base { return &c.base }

func (c *Composite) ShortTypeName() string {
	if c.root {
		return TypeCompositeRoot
	}
	return TypeCompositeChild
}

func (c *Composite) Dependencies() []Node { return nil }
func (c *Composite) sealed()              {}

// IsRoot reports whether this composite is the top of a build tree.
func (c *Composite) IsRoot() bool { return c.root }

// Children returns the ordered child list.
func (c *Composite) Children() []Node { return c.children }

func (c *Composite) Title() string {
	if c.base.title != "" {
		return c.base.title
	}
	var parts []string
	for _, ch := range c.children {
		parts = append(parts, ch.Title())
		if len(parts) == 3 {
			break
		}
	}
	if len(parts) == 0 {
		return "composite"
	}
	return strings.Join(parts, " ")
}

// AppendChild adds a node as the last child. The tree stays acyclic by
// construction: a node enters exactly one parent's child list and never
// references an ancestor. A child needing re-encoding propagates that
// requirement to this composite.
func (c *Composite) AppendChild(n Node) {
	n.Base().setTopParent(c.base.topParentID)
	if comp, ok := n.(*Composite); ok {
		comp.root = false
		comp.retagSubtree(c.base.topParentID)
	}
	if n.Base().NeedsReencoding() {
		c.base.needsReencoding = true
	}
	c.children = append(c.children, n)
}

func (c *Composite) retagSubtree(topID string) {
	for _, ch := range c.children {
		ch.Base().setTopParent(topID)
		if comp, ok := ch.(*Composite); ok {
			comp.retagSubtree(topID)
		}
	}
}

func (c *Composite) PrepareBuild(ctx context.Context, settings model.BuildSettings) error {
	for _, ch := range c.children {
		if err := ch.PrepareBuild(ctx, settings); err != nil {
			return err
		}
		if ch.Base().NeedsReencoding() {
			c.base.needsReencoding = true
		}
	}
	c.base.prepare(settings)
	return nil
}
