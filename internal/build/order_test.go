package build

import (
	"context"
	"testing"

	"promptreel/internal/model"
	"promptreel/internal/video"
)

func orderIndex(order []video.Node) map[string]int {
	idx := make(map[string]int, len(order))
	for i, n := range order {
		idx[n.Base().ID()] = i
	}
	return idx
}

func TestResolveOrderSimpleComposite(t *testing.T) {
	root := video.NewRootComposite()
	a := video.NewRawText("first clip")
	b := video.NewRawText("second clip")
	tr := video.NewTransition(a, b)
	root.AppendChild(a)
	root.AppendChild(tr)
	root.AppendChild(b)

	order := ResolveOrder(root)
	if len(order) != 4 {
		t.Fatalf("order length: got %d want 4", len(order))
	}
	idx := orderIndex(order)
	if idx[tr.Base().ID()] < idx[a.Base().ID()] || idx[tr.Base().ID()] < idx[b.Base().ID()] {
		t.Fatal("transition scheduled before an endpoint")
	}
	if order[len(order)-1] != video.Node(root) {
		t.Fatal("root is not last")
	}
}

func TestResolveOrderPromptBased(t *testing.T) {
	p := model.Prompt{
		Text: "four scenes",
		Subtitles: []model.Subtitle{
			{Index: 0, StartMs: 0, EndMs: 7000, Text: "a calm forest stream"},
			{Index: 1, StartMs: 7000, EndMs: 14000, Text: "sunlight through trees"},
			{Index: 2, StartMs: 14000, EndMs: 21000, Text: "a deer drinking"},
			{Index: 3, StartMs: 21000, EndMs: 28000, Text: "mist at dawn"},
		},
		DurationS: 28,
	}
	node := video.NewPromptBased(p, nil)
	if err := node.PrepareBuild(context.Background(), model.BuildSettings{}); err != nil {
		t.Fatal(err)
	}

	order := ResolveOrder(node)
	// 4 groups of [clip, transition, clip] plus the groups plus the
	// prompt node itself: 4*3 + 4 + 1.
	if len(order) != 17 {
		t.Fatalf("order length: got %d want 17", len(order))
	}
	if _, ok := order[0].(*video.RawText); !ok {
		t.Errorf("entry 0 is %T, want *RawText", order[0])
	}
	if _, ok := order[1].(*video.RawText); !ok {
		t.Errorf("entry 1 is %T, want *RawText", order[1])
	}
	if _, ok := order[2].(*video.Transition); !ok {
		t.Errorf("entry 2 is %T, want *Transition", order[2])
	}
	if order[len(order)-1] != video.Node(node) {
		t.Error("prompt node is not last")
	}

	// Uniqueness.
	seen := make(map[string]bool)
	for _, n := range order {
		if seen[n.Base().ID()] {
			t.Fatalf("node %s appears twice", n.Base().ID())
		}
		seen[n.Base().ID()] = true
	}

	// Every dependency and child precedes its node.
	idx := orderIndex(order)
	for _, n := range order {
		for _, d := range n.Dependencies() {
			if idx[d.Base().ID()] >= idx[n.Base().ID()] {
				t.Fatalf("dependency %s not before %s", d.Base().ID(), n.Base().ID())
			}
		}
		for _, c := range childrenOf(n) {
			if idx[c.Base().ID()] >= idx[n.Base().ID()] {
				t.Fatalf("child %s not before %s", c.Base().ID(), n.Base().ID())
			}
		}
	}

	// Stability: a second resolve yields the identical sequence.
	again := ResolveOrder(node)
	if len(again) != len(order) {
		t.Fatalf("unstable length: %d vs %d", len(again), len(order))
	}
	for i := range order {
		if order[i].Base().ID() != again[i].Base().ID() {
			t.Fatalf("order differs at %d", i)
		}
	}
}
