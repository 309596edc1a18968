package walk

import (
	"github.com/Sumatoshi-tech/metaast/pkg/meta"
)

// MetaTree is the Tree view of MetaAST. LanguageSpecific nodes are opaque.
type MetaTree struct{}

// Children returns the node's children; LanguageSpecific nodes are opaque.
func (MetaTree) Children(node *meta.Node) ([]*meta.Node, bool) {
	if node == nil {
		return nil, true
	}

	if node.Kind() == meta.KindLanguageSpecific {
		return nil, false
	}

	return node.Children, true
}

// Rebuild returns node with children substituted, reusing node when every
// child is unchanged.
func Rebuild(node *meta.Node, children []*meta.Node) *meta.Node {
	if len(children) != len(node.Children) {
		return node.WithChildren(children)
	}

	for idx, child := range children {
		if child != node.Children[idx] {
			return node.WithChildren(children)
		}
	}

	return node
}

// Rewrite folds a MetaAST into a new MetaAST. A nil post rebuilds each node
// from its rewritten children. LanguageSpecific nodes pass through unchanged
// and leave the accumulator untouched.
func Rewrite[A any](
	root *meta.Node,
	acc A,
	pre Pre[*meta.Node, A],
	post Post[*meta.Node, *meta.Node, A],
) (*meta.Node, A, error) {
	if root == nil {
		return nil, acc, meta.NewMalformed(meta.KindInvalid, nil, "nil root")
	}

	checkedPre := func(node *meta.Node, state A) (*meta.Node, A, error) {
		if node == nil || node.Attrs == nil {
			return nil, state, meta.NewMalformed(meta.KindInvalid, nil, "nil node in tree")
		}

		if pre == nil {
			return node, state, nil
		}

		rewritten, next, err := pre(node, state)
		if err != nil {
			return nil, state, err
		}

		if rewritten == nil {
			return nil, state, meta.NewMalformed(node.Kind(), nil, "pre hook returned nil")
		}

		return rewritten, next, nil
	}

	checkedPost := func(node *meta.Node, children []*meta.Node, state A) (*meta.Node, A, error) {
		if node.Kind() == meta.KindLanguageSpecific {
			return node, state, nil
		}

		if post == nil {
			return Rebuild(node, children), state, nil
		}

		return post(node, children, state)
	}

	return Fold[*meta.Node, *meta.Node, A](root, acc, MetaTree{}, checkedPre, checkedPost)
}

// Map rewrites every structural node bottom-up with fn, which receives the
// node already rebuilt from its rewritten children.
func Map(root *meta.Node, fn func(*meta.Node) (*meta.Node, error)) (*meta.Node, error) {
	rewritten, _, err := Rewrite[struct{}](root, struct{}{}, nil,
		func(node *meta.Node, children []*meta.Node, acc struct{}) (*meta.Node, struct{}, error) {
			replaced, err := fn(Rebuild(node, children))

			return replaced, acc, err
		})

	return rewritten, err
}
