package video

import (
	"context"
	"errors"
	"fmt"

	"promptreel/internal/model"
)

// KeywordRewriter turns subtitle text into a keyword-style generation
// prompt plus a short title stem. The media gateway satisfies it.
type KeywordRewriter interface {
	RewritePromptKeywords(ctx context.Context, text string, excluded []string) (keywords string, titleStem string, err error)
}

// PromptBased wraps a decomposed prompt and lazily expands into an
// inner composite: one child composite per subtitle, each holding a
// keyword clip, a transition, and a plain-text clip.
type PromptBased struct {
	base Base

	Prompt   model.Prompt
	rewriter KeywordRewriter
	inner    *Composite
}

// NewPromptBased creates a prompt-backed node. The rewriter may be nil,
// in which case expansion uses the subtitle text verbatim as keywords.
func NewPromptBased(p model.Prompt, rewriter KeywordRewriter) *PromptBased {
	return &PromptBased{base: newBase(), Prompt: p, rewriter: rewriter}
}

func (n *PromptBased) Base() *Base           { return &n.base }
func (n *PromptBased) ShortTypeName() string { return TypePromptBased }
func (n *PromptBased) sealed()               {}

func (n *PromptBased) Title() string {
	if n.base.title != "" {
		return n.base.title
	}
	return titleFromText(n.Prompt.Text)
}

// Inner returns the expanded composite, or nil before expansion.
func (n *PromptBased) Inner() *Composite { return n.inner }

// Children delegates to the inner composite: the per-subtitle groups
// are scheduled and concatenated as if they were direct children, so
// the inner container itself never enters the build order.
func (n *PromptBased) Children() []Node {
	if n.inner == nil {
		return nil
	}
	return n.inner.Children()
}

func (n *PromptBased) Dependencies() []Node { return nil }

func (n *PromptBased) PrepareBuild(ctx context.Context, settings model.BuildSettings) error {
	if len(n.Prompt.Subtitles) == 0 {
		return errors.New("prompt based node: prompt has no subtitles")
	}
	if err := n.expand(ctx); err != nil {
		return err
	}
	if err := n.inner.PrepareBuild(ctx, settings); err != nil {
		return err
	}
	if n.inner.Base().NeedsReencoding() {
		n.base.needsReencoding = true
	}
	n.base.prepare(settings)
	return nil
}

// expand builds the inner composite once. Subsequent prepare calls
// reuse it so the tree stays stable across retries.
func (n *PromptBased) expand(ctx context.Context) error {
	if n.inner != nil {
		return nil
	}
	inner := NewRootComposite()
	inner.Base().setTopParent(n.base.topParentID)

	var excluded []string
	for i, sub := range n.Prompt.Subtitles {
		keywords := sub.Text
		if n.rewriter != nil {
			kw, stem, err := n.rewriter.RewritePromptKeywords(ctx, sub.Text, excluded)
			if err != nil {
				return fmt.Errorf("rewrite subtitle %d: %w", i, err)
			}
			keywords = kw
			if stem != "" {
				excluded = append(excluded, stem)
			}
		}

		group := NewChildComposite()
		kwClip := NewRawText(keywords)
		plainClip := NewRawText(sub.Text)
		group.AppendChild(kwClip)
		group.AppendChild(NewTransition(kwClip, plainClip))
		group.AppendChild(plainClip)
		inner.AppendChild(group)
	}
	n.inner = inner
	return nil
}
