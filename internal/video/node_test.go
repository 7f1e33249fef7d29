package video

import (
	"context"
	"errors"
	"testing"

	"promptreel/internal/model"
)

func TestStateMachineTransitions(t *testing.T) {
	n := NewRawText("a test prompt")
	b := n.Base()

	if b.State() != StateCreated {
		t.Fatalf("new node state: got %v", b.State())
	}
	// Building straight from Created is a planner bug.
	if err := b.Transition(StateBuilding); err == nil {
		t.Fatal("expected error for Created -> Building")
	}
	if err := n.PrepareBuild(context.Background(), model.BuildSettings{}); err != nil {
		t.Fatal(err)
	}
	if b.State() != StatePrepared {
		t.Fatalf("after prepare: got %v", b.State())
	}
	// prepare is idempotent
	if err := n.PrepareBuild(context.Background(), model.BuildSettings{}); err != nil {
		t.Fatal(err)
	}
	if b.State() != StatePrepared {
		t.Fatalf("after second prepare: got %v", b.State())
	}
	for _, s := range []State{StateBuilding, StateBuilt, StateFinalized} {
		if err := b.Transition(s); err != nil {
			t.Fatalf("transition to %v: %v", s, err)
		}
	}
	// Cannot go back.
	if err := b.Transition(StateBuilding); err == nil {
		t.Fatal("expected error for Finalized -> Building")
	}
	// Failed is always reachable.
	b.MarkFailed(errors.New("boom"))
	if b.State() != StateFailed || b.Failure() == nil {
		t.Fatalf("after MarkFailed: state %v failure %v", b.State(), b.Failure())
	}
}

func TestMetadataFlagsAreMonotone(t *testing.T) {
	n := NewRawText("x")
	b := n.Base()

	b.MarkGenerated()
	b.MarkInterpolated()
	b.MarkReencoded()
	b.MarkBgMusicGenerated()
	b.MarkReadAloud()

	m := b.Metadata()
	if !m.IsVideoGenerated || !m.IsInterpolated || !m.IsReencoded ||
		!m.IsBgMusicApplied || !m.IsBgMusicGenerated || !m.IsPromptReadAloud {
		t.Fatalf("flags not all set: %+v", m)
	}
	// Re-marking keeps them set; there is no way to unset.
	b.MarkGenerated()
	if !b.Metadata().IsVideoGenerated {
		t.Fatal("IsVideoGenerated reverted")
	}
}

func TestAppendChildPropagation(t *testing.T) {
	root := NewRootComposite()
	child := NewChildComposite()
	imported := NewImported("/tmp/clip.mp4")
	child.AppendChild(imported)
	root.AppendChild(child)

	if child.IsRoot() {
		t.Fatal("appended composite still claims to be root")
	}
	if !root.Base().NeedsReencoding() {
		t.Fatal("imported child did not propagate re-encoding to the root")
	}
	topID := root.Base().TopParentID()
	if imported.Base().TopParentID() != topID {
		t.Fatalf("imported top parent: got %s want %s", imported.Base().TopParentID(), topID)
	}
	if child.Base().TopParentID() != topID {
		t.Fatalf("child top parent: got %s want %s", child.Base().TopParentID(), topID)
	}
}

func fourSubtitlePrompt() model.Prompt {
	return model.Prompt{
		Text: "one two three four",
		Subtitles: []model.Subtitle{
			{Index: 0, StartMs: 0, EndMs: 7000, Text: "a calm forest stream"},
			{Index: 1, StartMs: 7000, EndMs: 14000, Text: "sunlight through the trees"},
			{Index: 2, StartMs: 14000, EndMs: 21000, Text: "a deer drinking water"},
			{Index: 3, StartMs: 21000, EndMs: 28000, Text: "mist rising at dawn"},
		},
		DurationS: 28,
	}
}

func TestPromptBasedExpansion(t *testing.T) {
	n := NewPromptBased(fourSubtitlePrompt(), nil)
	if err := n.PrepareBuild(context.Background(), model.BuildSettings{}); err != nil {
		t.Fatal(err)
	}

	groups := n.Children()
	if len(groups) != 4 {
		t.Fatalf("groups: got %d want 4", len(groups))
	}
	for i, g := range groups {
		comp, ok := g.(*Composite)
		if !ok {
			t.Fatalf("group %d is %T, want *Composite", i, g)
		}
		kids := comp.Children()
		if len(kids) != 3 {
			t.Fatalf("group %d children: got %d want 3", i, len(kids))
		}
		if _, ok := kids[0].(*RawText); !ok {
			t.Errorf("group %d child 0 is %T, want *RawText", i, kids[0])
		}
		tr, ok := kids[1].(*Transition)
		if !ok {
			t.Fatalf("group %d child 1 is %T, want *Transition", i, kids[1])
		}
		if _, ok := kids[2].(*RawText); !ok {
			t.Errorf("group %d child 2 is %T, want *RawText", i, kids[2])
		}
		if tr.Source != kids[0] || tr.Target != kids[2] {
			t.Errorf("group %d transition does not bridge its siblings", i)
		}
	}

	// A second prepare must not re-expand.
	inner := n.Inner()
	if err := n.PrepareBuild(context.Background(), model.BuildSettings{}); err != nil {
		t.Fatal(err)
	}
	if n.Inner() != inner {
		t.Fatal("expansion is not stable across prepares")
	}
}

type staticRewriter struct {
	calls    int
	excluded [][]string
}

func (s *staticRewriter) RewritePromptKeywords(_ context.Context, text string, excluded []string) (string, string, error) {
	s.calls++
	s.excluded = append(s.excluded, append([]string(nil), excluded...))
	return "vivid " + text, "stem" + string(rune('a'+s.calls-1)), nil
}

func TestPromptBasedExcludesEarlierStems(t *testing.T) {
	rw := &staticRewriter{}
	n := NewPromptBased(fourSubtitlePrompt(), rw)
	if err := n.PrepareBuild(context.Background(), model.BuildSettings{}); err != nil {
		t.Fatal(err)
	}
	if rw.calls != 4 {
		t.Fatalf("rewriter calls: got %d want 4", rw.calls)
	}
	if len(rw.excluded[0]) != 0 {
		t.Fatalf("first call excluded: got %v", rw.excluded[0])
	}
	if got := len(rw.excluded[3]); got != 3 {
		t.Fatalf("fourth call excluded count: got %d want 3", got)
	}
}
