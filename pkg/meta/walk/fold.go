// Package walk implements the generic traversal engine: a single
// depth-first, left-to-right fold that drives tree rewriting, validation, and
// analyzer visits alike.
package walk

const defaultStackCap = 64

// Tree exposes the children of a node type. The second result reports
// whether the node is structural; opaque nodes are not descended into and
// do not see the pre hook.
type Tree[N any] interface {
	Children(node N) ([]N, bool)
}

// Pre runs on the way down. It may replace the node before its children are
// read and may thread a new accumulator into the subtree.
type Pre[N, A any] func(node N, acc A) (N, A, error)

// Post runs on the way up with the already folded children, in order.
type Post[N, R, A any] func(node N, children []R, acc A) (R, A, error)

type foldFrame[N, R any] struct {
	node     N
	children []N
	results  []R
	childIdx int
}

// Fold reduces a tree bottom-up. Children are folded strictly before their
// parent, left to right, and the accumulator is threaded through every hook
// in that order. The first error aborts the fold; no partial result is
// returned.
func Fold[N, R, A any](root N, acc A, tree Tree[N], pre Pre[N, A], post Post[N, R, A]) (R, A, error) {
	var zero R

	stack := make([]foldFrame[N, R], 0, defaultStackCap)

	frame, acc, err := enterFrame[N, R](root, acc, tree, pre)
	if err != nil {
		return zero, acc, err
	}

	stack = append(stack, frame)

	for len(stack) > 0 {
		top := &stack[len(stack)-1]

		if top.childIdx < len(top.children) {
			child := top.children[top.childIdx]
			top.childIdx++

			var childFrame foldFrame[N, R]

			childFrame, acc, err = enterFrame[N, R](child, acc, tree, pre)
			if err != nil {
				return zero, acc, err
			}

			stack = append(stack, childFrame)

			continue
		}

		var result R

		result, acc, err = post(top.node, top.results, acc)
		if err != nil {
			return zero, acc, err
		}

		stack = stack[:len(stack)-1]

		if len(stack) == 0 {
			return result, acc, nil
		}

		parent := &stack[len(stack)-1]
		parent.results = append(parent.results, result)
	}

	return zero, acc, nil
}

func enterFrame[N, R, A any](node N, acc A, tree Tree[N], pre Pre[N, A]) (foldFrame[N, R], A, error) {
	_, structural := tree.Children(node)
	if !structural {
		return foldFrame[N, R]{node: node}, acc, nil
	}

	if pre != nil {
		var err error

		node, acc, err = pre(node, acc)
		if err != nil {
			return foldFrame[N, R]{}, acc, err
		}
	}

	children, _ := tree.Children(node)

	return foldFrame[N, R]{
		node:     node,
		children: children,
		results:  make([]R, 0, len(children)),
	}, acc, nil
}
