package build

import "promptreel/internal/video"

// ResolveOrder linearizes the subtree under root so that every
// dependency and every composite child appears before the node that
// needs it. The traversal is a post-order DFS with ties broken by
// declaration order, so two invocations on the same tree produce
// identical orders and each node appears exactly once.
func ResolveOrder(root video.Node) []video.Node {
	seen := make(map[string]bool)
	var order []video.Node

	var visit func(n video.Node)
	visit = func(n video.Node) {
		if seen[n.Base().ID()] {
			return
		}
		for _, ch := range childrenOf(n) {
			visit(ch)
		}
		for _, dep := range n.Dependencies() {
			visit(dep)
		}
		if seen[n.Base().ID()] {
			return
		}
		seen[n.Base().ID()] = true
		order = append(order, n)
	}
	visit(root)
	return order
}

// childrenOf returns the ordered children for container nodes. A
// PromptBased node exposes its expanded per-subtitle groups directly.
func childrenOf(n video.Node) []video.Node {
	switch c := n.(type) {
	case *video.Composite:
		return c.Children()
	case *video.PromptBased:
		return c.Children()
	default:
		return nil
	}
}
