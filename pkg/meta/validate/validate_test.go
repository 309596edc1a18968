package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/metaast/pkg/meta"
)

func TestClassifyLayers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		tree  *meta.Node
		layer meta.Layer
	}{
		{
			name:  "core arithmetic",
			tree:  meta.NewBinaryOp(meta.OpArithmetic, "+", meta.Var("x"), meta.Lit(meta.Int(5))),
			layer: meta.LayerCore,
		},
		{
			name: "extended loop inside core block",
			tree: meta.NewBlock(
				meta.NewWhile(meta.Lit(meta.Bool(true)), meta.NewBlock()),
			),
			layer: meta.LayerExtended,
		},
		{
			name: "native escape dominates",
			tree: meta.NewList(
				meta.NewLambda([]string{"x"}, meta.Var("x")),
				meta.NewLanguageSpecific(meta.LanguageElixir, "sigil", "~r/a/"),
			),
			layer: meta.LayerNative,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			report := Classify(tt.tree)
			assert.True(t, report.Valid(), report.Violations)
			assert.Equal(t, tt.layer, report.Layer)
		})
	}
}

func TestLayerMonotonicity(t *testing.T) {
	t.Parallel()

	child := meta.NewCollectionOp(meta.CollectionMap,
		meta.NewLambda([]string{"x"}, meta.Var("x")), meta.Var("xs"), nil)
	parent := meta.NewBlock(meta.NewAssignment(meta.Var("ys"), child))

	assert.GreaterOrEqual(t, Classify(parent).Layer, Classify(child).Layer)
	assert.False(t, ConformsTo(parent, meta.LayerCore))
	assert.True(t, ConformsTo(parent, meta.LayerExtended))
}

func TestDepthAndCounts(t *testing.T) {
	t.Parallel()

	report := Classify(meta.NewBlock(meta.NewReturn(meta.NewBinaryOp(meta.OpArithmetic, "+", meta.Var("a"), meta.Var("b")))))

	assert.Equal(t, 4, report.Depth)
	assert.Equal(t, 5, report.Nodes)
	assert.Equal(t, 2, report.KindCounts[meta.KindVariable])
}

func TestMalformedConditionalFlagged(t *testing.T) {
	t.Parallel()

	broken := &meta.Node{
		Attrs:    meta.ConditionalAttrs{},
		Children: []*meta.Node{meta.Var("c"), meta.NewBlock()},
	}

	report := Classify(meta.NewBlock(broken))
	require.Len(t, report.Violations, 1)
	assert.Equal(t, meta.KindConditional, report.Violations[0].Kind)
	assert.Equal(t, []int{0}, report.Violations[0].Path)

	err := Check(meta.NewBlock(broken))
	require.ErrorIs(t, err, meta.ErrMalformedNode)
	assert.Contains(t, err.Error(), "expected 3 children, got 2")
}

func TestViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		tree   *meta.Node
		reason string
	}{
		{
			name:   "absent in required slot",
			tree:   meta.New(meta.BinaryOpAttrs{Category: meta.OpArithmetic, Operator: "+"}, meta.Var("x"), meta.Absent()),
			reason: "child 1 is Absent in a required slot",
		},
		{
			name:   "absent inside a list",
			tree:   meta.NewList(meta.Absent()),
			reason: "child 0 is Absent in a required slot",
		},
		{
			name:   "nil child",
			tree:   &meta.Node{Attrs: meta.TupleAttrs{}, Children: []*meta.Node{nil}},
			reason: "child 0 is nil",
		},
		{
			name:   "map of non-pairs",
			tree:   meta.NewMap(meta.Var("k")),
			reason: "child 0 must be Pair, got Variable",
		},
		{
			name:   "match arms",
			tree:   meta.NewPatternMatch(meta.Var("x"), meta.Var("y")),
			reason: "child 1 must be MatchArm, got Variable",
		},
		{
			name:   "catch clauses",
			tree:   meta.NewExceptionHandling(meta.NewBlock(), nil, meta.NewBlock()),
			reason: "child 2 must be CatchClause, got Block",
		},
		{
			name:   "duplicate lambda params",
			tree:   meta.NewLambda([]string{"x", "x"}, meta.Var("x")),
			reason: `duplicate parameter "x"`,
		},
		{
			name:   "while loop with three children",
			tree:   meta.New(meta.LoopAttrs{LoopType: meta.LoopWhile}, meta.Var("c"), meta.NewBlock(), meta.NewBlock()),
			reason: "expected 2 children, got 3",
		},
		{
			name:   "reduce without initial",
			tree:   meta.New(meta.CollectionOpAttrs{OpType: meta.CollectionReduce}, meta.NewLambda(nil, meta.Var("a")), meta.Var("xs")),
			reason: "expected 3 children, got 2",
		},
		{
			name:   "unknown operator category",
			tree:   meta.NewUnaryOp("weird", "-", meta.Var("x")),
			reason: `unknown operator category "weird"`,
		},
		{
			name:   "escape without language",
			tree:   meta.NewLanguageSpecific("", "x", nil),
			reason: "escape node has no language",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			report := Classify(tt.tree)
			require.NotEmpty(t, report.Violations)

			reasons := make([]string, len(report.Violations))
			for idx, violation := range report.Violations {
				reasons[idx] = violation.Reason
			}

			assert.Contains(t, reasons, tt.reason)
		})
	}
}

func TestOptionalSlotsAcceptAbsent(t *testing.T) {
	t.Parallel()

	trees := []*meta.Node{
		meta.NewConditional(meta.Var("c"), meta.NewBlock(), nil),
		meta.NewReturn(nil),
		meta.NewMatchArm(meta.Var("x"), nil, meta.Var("x")),
		meta.NewExceptionHandling(meta.NewBlock(), nil),
		meta.NewProperty("size", nil, nil),
	}

	for _, tree := range trees {
		assert.True(t, Classify(tree).Valid(), meta.Format(tree))
	}
}

func TestFreeVariables(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		tree *meta.Node
		free []string
	}{
		{
			name: "lambda binds params",
			tree: meta.NewLambda([]string{"x"}, meta.NewBinaryOp(meta.OpArithmetic, "+", meta.Var("x"), meta.Var("y"))),
			free: []string{"y"},
		},
		{
			name: "assignment binds later siblings",
			tree: meta.NewBlock(
				meta.NewAssignment(meta.Var("x"), meta.Var("seed")),
				meta.NewReturn(meta.Var("x")),
			),
			free: []string{"seed"},
		},
		{
			name: "assignment value reads before binding",
			tree: meta.NewBlock(
				meta.NewAssignment(meta.Var("x"), meta.NewBinaryOp(meta.OpArithmetic, "+", meta.Var("x"), meta.Lit(meta.Int(1)))),
			),
			free: []string{"x"},
		},
		{
			name: "tuple destructuring",
			tree: meta.NewBlock(
				meta.NewInlineMatch(meta.NewTuple(meta.Var("a"), meta.Var("b")), meta.Var("pair")),
				meta.NewBinaryOp(meta.OpArithmetic, "+", meta.Var("a"), meta.Var("b")),
			),
			free: []string{"pair"},
		},
		{
			name: "for each binds iterator",
			tree: meta.NewForEach(meta.Var("item"), meta.Var("items"),
				meta.NewBlock(meta.NewCall("print", meta.Var("item")))),
			free: []string{"items"},
		},
		{
			name: "match arm binds pattern",
			tree: meta.NewPatternMatch(meta.Var("v"),
				meta.NewMatchArm(meta.Var("n"), meta.NewBinaryOp(meta.OpComparison, ">", meta.Var("n"), meta.Var("lim")), meta.Var("n"))),
			free: []string{"v", "lim"},
		},
		{
			name: "catch binding",
			tree: meta.NewExceptionHandling(meta.NewBlock(meta.NewCall("risky")), nil,
				meta.NewCatchClause("ValueError", "err", meta.NewBlock(meta.NewCall("log", meta.Var("err"))))),
			free: nil,
		},
		{
			name: "function params",
			tree: meta.NewFunctionDef("add", meta.VisibilityPublic, []string{"a"},
				meta.NewReturn(meta.NewBinaryOp(meta.OpArithmetic, "+", meta.Var("a"), meta.Var("b")))),
			free: []string{"b"},
		},
		{
			name: "dotted call reads its receiver",
			tree: meta.NewCall("obj.method", meta.Var("arg")),
			free: []string{"obj", "arg"},
		},
		{
			name: "receiver bound by an earlier statement",
			tree: meta.NewBlock(
				meta.NewAssignment(meta.Var("handle"), meta.NewCall("open", meta.Var("path"))),
				meta.NewCall("handle.read"),
			),
			free: []string{"path"},
		},
		{
			name: "module alias is not a variable",
			tree: meta.NewCall("String.upcase", meta.Var("s")),
			free: []string{"s"},
		},
		{
			name: "while loop binds nothing",
			tree: meta.NewWhile(meta.Var("running"), meta.NewBlock(meta.NewCall("tick"))),
			free: []string{"running"},
		},
		{
			name: "escape nodes hide their variables",
			tree: meta.NewLanguageSpecific(meta.LanguagePython, "Yield", "yield x"),
			free: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			report := Classify(tt.tree)
			assert.Equal(t, tt.free, report.FreeVariables)
		})
	}
}

func TestNilRoot(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Check(nil), meta.ErrMalformedNode)
	assert.False(t, ConformsTo(nil, meta.LayerNative))
}
