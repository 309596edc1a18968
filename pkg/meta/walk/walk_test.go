package walk

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/metaast/pkg/meta"
)

func sampleTree() *meta.Node {
	return meta.NewBlock(
		meta.NewAssignment(meta.Var("x"), meta.Lit(meta.Int(1))),
		meta.NewBinaryOp(meta.OpArithmetic, "+", meta.Var("x"), meta.Lit(meta.Int(5))),
		meta.NewLanguageSpecific(meta.LanguagePython, "Yield", "yield x"),
	)
}

func kindNames(nodes []*meta.Node) []string {
	names := make([]string, len(nodes))

	for idx, node := range nodes {
		names[idx] = node.Kind().String()
	}

	return names
}

// intTree is a toy tree used to check Fold is independent of MetaAST.
type intTree map[int][]int

func (tree intTree) Children(node int) ([]int, bool) {
	if node < 0 {
		return nil, false
	}

	return tree[node], true
}

func TestFoldGenericSum(t *testing.T) {
	t.Parallel()

	tree := intTree{1: {2, 3}, 3: {4, -9}}

	sum, visits, err := Fold[int, int, int](1, 0, tree, nil,
		func(node int, children []int, acc int) (int, int, error) {
			total := node

			for _, child := range children {
				total += child
			}

			return total, acc + 1, nil
		})

	require.NoError(t, err)
	assert.Equal(t, 1+2+3+4-9, sum)
	assert.Equal(t, 5, visits)
}

func TestFoldPostOrderLeftToRight(t *testing.T) {
	t.Parallel()

	_, order, err := Fold[*meta.Node, struct{}, []string](sampleTree(), nil, MetaTree{}, nil,
		func(node *meta.Node, _ []struct{}, acc []string) (struct{}, []string, error) {
			return struct{}{}, append(acc, meta.Describe(node)), nil
		})

	require.NoError(t, err)
	assert.Equal(t, []string{
		"Variable(x)",
		"Literal(1)",
		"Assignment",
		"Variable(x)",
		"Literal(5)",
		"BinaryOp(arithmetic +)",
		"LanguageSpecific(python Yield)",
		"Block",
	}, order)
}

func TestFoldOpaqueNodesSkipPre(t *testing.T) {
	t.Parallel()

	var seen []string

	_, _, err := Fold[*meta.Node, int, int](sampleTree(), 0, MetaTree{},
		func(node *meta.Node, acc int) (*meta.Node, int, error) {
			seen = append(seen, node.Kind().String())

			return node, acc, nil
		},
		func(_ *meta.Node, children []int, acc int) (int, int, error) {
			return len(children), acc, nil
		})

	require.NoError(t, err)
	assert.NotContains(t, seen, "LanguageSpecific")
	assert.Contains(t, seen, "Block")
}

func TestFoldEmptyChildrenReachPost(t *testing.T) {
	t.Parallel()

	calls := 0

	_, _, err := Fold[*meta.Node, int, int](meta.NewBlock(), 0, MetaTree{}, nil,
		func(_ *meta.Node, children []int, acc int) (int, int, error) {
			calls++

			assert.Empty(t, children)

			return 0, acc, nil
		})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

var errStop = errors.New("stop")

func TestFoldAbortsOnError(t *testing.T) {
	t.Parallel()

	posts := 0

	result, _, err := Fold[*meta.Node, int, int](sampleTree(), 0, MetaTree{}, nil,
		func(node *meta.Node, _ []int, acc int) (int, int, error) {
			posts++

			if node.Kind() == meta.KindLiteral {
				return 0, acc, errStop
			}

			return 1, acc, nil
		})

	require.ErrorIs(t, err, errStop)
	assert.Equal(t, 0, result)
	assert.Equal(t, 2, posts)
}

func TestRewriteIdentity(t *testing.T) {
	t.Parallel()

	tree := sampleTree()

	rewritten, _, err := Rewrite[int](tree, 0, nil, nil)
	require.NoError(t, err)
	assert.Same(t, tree, rewritten)
}

func TestRewriteRenamesVariables(t *testing.T) {
	t.Parallel()

	tree := sampleTree()

	rewritten, renamed, err := Rewrite[int](tree, 0, nil,
		func(node *meta.Node, children []*meta.Node, acc int) (*meta.Node, int, error) {
			if attrs, ok := node.Attrs.(meta.VariableAttrs); ok {
				return meta.Var(strings.ToUpper(attrs.Name)), acc + 1, nil
			}

			return Rebuild(node, children), acc, nil
		})

	require.NoError(t, err)
	assert.Equal(t, 2, renamed)

	expected := meta.NewBlock(
		meta.NewAssignment(meta.Var("X"), meta.Lit(meta.Int(1))),
		meta.NewBinaryOp(meta.OpArithmetic, "+", meta.Var("X"), meta.Lit(meta.Int(5))),
		meta.NewLanguageSpecific(meta.LanguagePython, "Yield", "yield x"),
	)
	assert.True(t, meta.Equal(expected, rewritten), meta.Format(rewritten))
	assert.Same(t, tree.Children[2], rewritten.Children[2])
	assert.Equal(t, "x", tree.Children[0].Children[0].Attrs.(meta.VariableAttrs).Name)
}

func TestRewriteLanguageSpecificLeavesAccumulator(t *testing.T) {
	t.Parallel()

	escape := meta.NewLanguageSpecific(meta.LanguageElixir, "sigil", "~r/x/")

	rewritten, acc, err := Rewrite[int](escape, 41,
		func(node *meta.Node, acc int) (*meta.Node, int, error) {
			return node, acc + 1, nil
		},
		func(node *meta.Node, _ []*meta.Node, acc int) (*meta.Node, int, error) {
			return meta.Var("never"), acc + 1, nil
		})

	require.NoError(t, err)
	assert.Same(t, escape, rewritten)
	assert.Equal(t, 41, acc)
}

func TestRewritePreThreadsAccumulatorIntoSubtree(t *testing.T) {
	t.Parallel()

	tree := meta.NewLambda([]string{"y"}, meta.NewBinaryOp(meta.OpArithmetic, "*", meta.Var("y"), meta.Var("z")))

	_, depth, err := Rewrite[int](tree, 0,
		func(node *meta.Node, acc int) (*meta.Node, int, error) {
			return node, acc + 1, nil
		},
		nil)

	require.NoError(t, err)
	assert.Equal(t, 4, depth)
}

func TestRewriteRejectsNil(t *testing.T) {
	t.Parallel()

	_, _, err := Rewrite[int](nil, 0, nil, nil)
	require.ErrorIs(t, err, meta.ErrMalformedNode)

	broken := &meta.Node{Attrs: meta.ListAttrs{}, Children: []*meta.Node{nil}}

	_, _, err = Rewrite[int](broken, 0, nil, nil)
	require.ErrorIs(t, err, meta.ErrMalformedNode)
}

func TestMap(t *testing.T) {
	t.Parallel()

	folded, err := Map(meta.NewBinaryOp(meta.OpArithmetic, "+", meta.Lit(meta.Int(2)), meta.Lit(meta.Int(3))),
		func(node *meta.Node) (*meta.Node, error) {
			attrs, ok := node.Attrs.(meta.BinaryOpAttrs)
			if !ok || attrs.Operator != "+" {
				return node, nil
			}

			left, leftOK := node.Children[0].Attrs.(meta.LiteralAttrs)
			right, rightOK := node.Children[1].Attrs.(meta.LiteralAttrs)

			if !leftOK || !rightOK {
				return node, nil
			}

			return meta.Lit(meta.Int(left.Value.Int + right.Value.Int)), nil
		})

	require.NoError(t, err)
	assert.True(t, meta.Equal(meta.Lit(meta.Int(5)), folded))
}

func TestVisitEmitsInPostOrderWithContext(t *testing.T) {
	t.Parallel()

	type hit struct {
		kind    string
		parents []string
		depth   int
	}

	hits, count, err := Visit[hit, int](sampleTree(), 0, nil,
		func(node *meta.Node, ctx Context, acc int) ([]hit, int, error) {
			if node.Kind() != meta.KindVariable && node.Kind() != meta.KindLanguageSpecific {
				return nil, acc, nil
			}

			return []hit{{kind: node.Kind().String(), parents: kindNames(ctx.Parents), depth: ctx.Depth}}, acc + 1, nil
		})

	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, []hit{
		{kind: "Variable", parents: []string{"Block", "Assignment"}, depth: 2},
		{kind: "Variable", parents: []string{"Block", "BinaryOp"}, depth: 2},
		{kind: "LanguageSpecific", parents: []string{"Block"}, depth: 1},
	}, hits)
}

func TestVisitPreSeesParents(t *testing.T) {
	t.Parallel()

	_, maxDepth, err := Visit[struct{}, int](sampleTree(), 0,
		func(_ *meta.Node, ctx Context, acc int) (int, error) {
			return max(acc, ctx.Depth), nil
		},
		nil)

	require.NoError(t, err)
	assert.Equal(t, 2, maxDepth)
}

func TestEachSkipsSubtrees(t *testing.T) {
	t.Parallel()

	var seen []string

	Each(sampleTree(), func(node *meta.Node, ctx Context) bool {
		seen = append(seen, node.Kind().String())

		if ctx.Parent() == nil {
			return true
		}

		return node.Kind() != meta.KindAssignment
	})

	assert.Equal(t, []string{"Block", "Assignment", "BinaryOp", "Variable", "Literal", "LanguageSpecific"}, seen)
}
