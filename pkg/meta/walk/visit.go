package walk

import (
	"github.com/Sumatoshi-tech/metaast/pkg/meta"
)

// Context describes where a visited node sits. Parents is root-first and
// excludes the node itself; Depth equals len(Parents).
type Context struct {
	Parents []*meta.Node
	Depth   int
}

// Parent returns the closest enclosing node, or nil at the root.
func (ctx Context) Parent() *meta.Node {
	if len(ctx.Parents) == 0 {
		return nil
	}

	return ctx.Parents[len(ctx.Parents)-1]
}

// VisitPre runs before a structural node's children are visited.
type VisitPre[A any] func(node *meta.Node, ctx Context, acc A) (A, error)

// VisitPost runs after a node's children and returns the items it emits.
type VisitPost[T, A any] func(node *meta.Node, ctx Context, acc A) ([]T, A, error)

type visitState[A any] struct {
	user    A
	parents []*meta.Node
}

// Visit walks the tree and concatenates the items emitted by post in
// post-order. The tree itself is not rebuilt.
func Visit[T, A any](root *meta.Node, acc A, pre VisitPre[A], post VisitPost[T, A]) ([]T, A, error) {
	if root == nil {
		return nil, acc, meta.NewMalformed(meta.KindInvalid, nil, "nil root")
	}

	foldPre := func(node *meta.Node, state visitState[A]) (*meta.Node, visitState[A], error) {
		if node == nil || node.Attrs == nil {
			return nil, state, meta.NewMalformed(meta.KindInvalid, nil, "nil node in tree")
		}

		if pre != nil {
			user, err := pre(node, contextOf(state.parents), state.user)
			if err != nil {
				return nil, state, err
			}

			state.user = user
		}

		state.parents = append(state.parents, node)

		return node, state, nil
	}

	foldPost := func(node *meta.Node, children [][]T, state visitState[A]) ([]T, visitState[A], error) {
		if len(state.parents) > 0 && state.parents[len(state.parents)-1] == node {
			state.parents = state.parents[:len(state.parents)-1]
		}

		var emitted []T

		for _, items := range children {
			emitted = append(emitted, items...)
		}

		if post == nil {
			return emitted, state, nil
		}

		own, user, err := post(node, contextOf(state.parents), state.user)
		if err != nil {
			return nil, state, err
		}

		state.user = user

		return append(emitted, own...), state, nil
	}

	items, state, err := Fold[*meta.Node, []T, visitState[A]](
		root, visitState[A]{user: acc}, MetaTree{}, foldPre, foldPost)

	return items, state.user, err
}

func contextOf(parents []*meta.Node) Context {
	frozen := make([]*meta.Node, len(parents))
	copy(frozen, parents)

	return Context{Parents: frozen, Depth: len(parents)}
}

// Each calls fn for every node in pre-order with its context. Returning
// false from fn skips the node's subtree.
func Each(root *meta.Node, fn func(node *meta.Node, ctx Context) bool) {
	type eachFrame struct {
		node    *meta.Node
		parents []*meta.Node
	}

	if root == nil {
		return
	}

	stack := []eachFrame{{node: root}}

	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if frame.node == nil {
			continue
		}

		if !fn(frame.node, Context{Parents: frame.parents, Depth: len(frame.parents)}) {
			continue
		}

		childParents := make([]*meta.Node, len(frame.parents)+1)
		copy(childParents, frame.parents)
		childParents[len(frame.parents)] = frame.node

		for idx := len(frame.node.Children) - 1; idx >= 0; idx-- {
			stack = append(stack, eachFrame{node: frame.node.Children[idx], parents: childParents})
		}
	}
}
