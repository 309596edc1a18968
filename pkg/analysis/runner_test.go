package analysis_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/metaast/pkg/adapter"
	"github.com/Sumatoshi-tech/metaast/pkg/analysis"
	"github.com/Sumatoshi-tech/metaast/pkg/meta"
)

var errBroken = errors.New("broken")

type funcAnalyzer struct {
	visit func(node *meta.Node, ctx analysis.Context) ([]analysis.Issue, error)
	name  string
}

func (analyzer funcAnalyzer) Name() string        { return analyzer.name }
func (analyzer funcAnalyzer) Description() string { return "test analyzer " + analyzer.name }

func (analyzer funcAnalyzer) Visit(node *meta.Node, ctx analysis.Context) ([]analysis.Issue, error) {
	return analyzer.visit(node, ctx)
}

func document(root *meta.Node) *adapter.Document {
	return &adapter.Document{AST: root, Language: meta.LanguagePython}
}

func run(t *testing.T, root *meta.Node, cfg analysis.Config, analyzers ...analysis.Analyzer) analysis.Result {
	t.Helper()

	registry, err := analysis.NewRegistry(analyzers...)
	require.NoError(t, err)

	result, err := analysis.NewRunner(registry).Run(context.Background(), document(root), cfg)
	require.NoError(t, err)

	return result
}

func escapeTree() *meta.Node {
	return meta.NewBlock(
		meta.NewAssignment(meta.Var("x"), meta.Lit(meta.Int(1))),
		meta.NewLanguageSpecific(meta.LanguagePython, "With", nil),
	)
}

func TestNativeEscape(t *testing.T) {
	t.Parallel()

	result := run(t, escapeTree(), analysis.Config{}, analysis.NativeEscape{})

	require.Empty(t, result.Faults)
	require.Len(t, result.Issues, 1)

	issue := result.Issues[0]
	assert.Equal(t, analysis.NativeEscapeName, issue.Analyzer)
	assert.Equal(t, meta.KindLanguageSpecific, issue.Kind)
	assert.Equal(t, analysis.SeverityInfo, issue.Severity)
	assert.Equal(t, []int{1}, issue.Path)
	assert.Contains(t, issue.Message, "python With")
}

func TestNativeEscape_SeverityOption(t *testing.T) {
	t.Parallel()

	cfg := analysis.Config{Options: map[string]map[string]any{
		analysis.NativeEscapeName: {"severity": "error"},
	}}

	result := run(t, escapeTree(), cfg, analysis.NativeEscape{})
	require.Len(t, result.Issues, 1)
	assert.Equal(t, analysis.SeverityError, result.Issues[0].Severity)

	cfg.Options[analysis.NativeEscapeName]["severity"] = 3

	result = run(t, escapeTree(), cfg, analysis.NativeEscape{})
	assert.Empty(t, result.Issues)
	require.Len(t, result.Faults, 1)
	assert.Equal(t, analysis.NativeEscapeName, result.Faults[0].Analyzer)
}

func TestRun_IsolatesFaultyAnalyzers(t *testing.T) {
	t.Parallel()

	root := meta.NewBinaryOp(meta.OpArithmetic, "+", meta.Var("x"), meta.Lit(meta.Int(5)))

	variables := funcAnalyzer{name: "variables", visit: func(node *meta.Node, _ analysis.Context) ([]analysis.Issue, error) {
		if node.Kind() == meta.KindVariable {
			return []analysis.Issue{{Message: "variable"}}, nil
		}

		return nil, nil
	}}

	panicky := funcAnalyzer{name: "panicky", visit: func(node *meta.Node, _ analysis.Context) ([]analysis.Issue, error) {
		if node.Kind() == meta.KindLiteral {
			panic("boom")
		}

		return []analysis.Issue{{Message: "before the panic"}}, nil
	}}

	failing := funcAnalyzer{name: "failing", visit: func(*meta.Node, analysis.Context) ([]analysis.Issue, error) {
		return nil, errBroken
	}}

	result := run(t, root, analysis.Config{}, variables, panicky, failing)

	require.Len(t, result.Issues, 1)
	assert.Equal(t, "variables", result.Issues[0].Analyzer)
	assert.Equal(t, analysis.SeverityWarning, result.Issues[0].Severity)
	assert.Equal(t, []int{0}, result.Issues[0].Path)

	require.Len(t, result.Faults, 2)
	assert.Equal(t, "failing", result.Faults[0].Analyzer)
	require.ErrorIs(t, result.Faults[0], errBroken)
	assert.Equal(t, "panicky", result.Faults[1].Analyzer)
	require.ErrorIs(t, result.Faults[1], analysis.ErrAnalyzerPanic)
}

func TestRun_VisitsEveryNodeOnce(t *testing.T) {
	t.Parallel()

	root := meta.NewConditional(
		meta.Var("ok"),
		meta.NewCall("f", meta.Lit(meta.Int(1))),
		meta.Absent(),
	)

	var (
		kinds  []meta.Kind
		depths []int
	)

	counter := funcAnalyzer{name: "counter", visit: func(node *meta.Node, ctx analysis.Context) ([]analysis.Issue, error) {
		kinds = append(kinds, node.Kind())
		depths = append(depths, ctx.Depth)

		if ctx.Depth > 0 {
			assert.Same(t, ctx.Parents[len(ctx.Parents)-1], ctx.Parent())
		} else {
			assert.Nil(t, ctx.Parent())
		}

		return nil, nil
	}}

	run(t, root, analysis.Config{}, counter)

	assert.Equal(t, []meta.Kind{
		meta.KindVariable, meta.KindLiteral, meta.KindFunctionCall, meta.KindAbsent, meta.KindConditional,
	}, kinds)
	assert.Equal(t, []int{1, 2, 1, 1, 0}, depths)
}

func TestRun_Scope(t *testing.T) {
	t.Parallel()

	root := meta.NewLambda([]string{"x"}, meta.NewBlock(
		meta.NewAssignment(meta.Var("y"), meta.Var("x")),
		meta.NewForEach(meta.Var("i"), meta.Var("probe"), meta.Var("probe")),
		meta.NewPatternMatch(meta.Var("probe"),
			meta.NewMatchArm(meta.NewTuple(meta.Var("a"), meta.Var("b")), meta.Absent(), meta.Var("probe"))),
	))

	scopes := funcAnalyzer{name: "scopes", visit: func(node *meta.Node, ctx analysis.Context) ([]analysis.Issue, error) {
		if attrs, ok := node.Attrs.(meta.VariableAttrs); ok && attrs.Name == "probe" {
			return []analysis.Issue{{Message: strings.Join(ctx.Scope, ",")}}, nil
		}

		return nil, nil
	}}

	result := run(t, root, analysis.Config{}, scopes)

	messages := make([]string, 0, len(result.Issues))
	for _, issue := range result.Issues {
		messages = append(messages, issue.Message)
	}

	assert.Equal(t, []string{"x,y", "x,y,i", "x,y", "x,y,a,b"}, messages)
}

func TestRun_ScopeFollowsBindingForms(t *testing.T) {
	t.Parallel()

	root := meta.NewFunctionDef("load", meta.VisibilityPublic, []string{"path"}, meta.NewBlock(
		meta.NewWhile(meta.Var("probe"), meta.NewBlock(meta.Var("probe"))),
		meta.NewExceptionHandling(meta.NewBlock(meta.Var("probe")), nil,
			meta.NewCatchClause("OSError", "err", meta.NewBlock(meta.Var("probe"))),
			meta.NewCatchClause("ValueError", "", meta.NewBlock(meta.Var("probe")))),
		meta.NewAssignment(meta.Var("probe"), meta.NewLambda([]string{"n"}, meta.Var("probe"))),
	))

	scopes := funcAnalyzer{name: "scopes", visit: func(node *meta.Node, ctx analysis.Context) ([]analysis.Issue, error) {
		if attrs, ok := node.Attrs.(meta.VariableAttrs); ok && attrs.Name == "probe" {
			return []analysis.Issue{{Message: strings.Join(ctx.Scope, ",")}}, nil
		}

		return nil, nil
	}}

	result := run(t, root, analysis.Config{}, scopes)

	messages := make([]string, 0, len(result.Issues))
	for _, issue := range result.Issues {
		messages = append(messages, issue.Message)
	}

	assert.Equal(t, []string{"path", "path", "path", "path,err", "path", "path", "path,n"}, messages)
}

func TestRun_LanguageSpecificIsOpaque(t *testing.T) {
	t.Parallel()

	var seen []meta.Kind

	recorder := funcAnalyzer{name: "recorder", visit: func(node *meta.Node, _ analysis.Context) ([]analysis.Issue, error) {
		seen = append(seen, node.Kind())

		return nil, nil
	}}

	run(t, meta.NewLanguageSpecific(meta.LanguageElixir, "sigil", map[string]any{"form": "~r"}), analysis.Config{}, recorder)

	assert.Equal(t, []meta.Kind{meta.KindLanguageSpecific}, seen)
}

func TestRun_Selection(t *testing.T) {
	t.Parallel()

	silent := funcAnalyzer{name: "silent", visit: func(*meta.Node, analysis.Context) ([]analysis.Issue, error) {
		return []analysis.Issue{{Message: "should not run"}}, nil
	}}

	result := run(t, escapeTree(), analysis.Config{Enabled: []string{analysis.NativeEscapeName}},
		analysis.NativeEscape{}, silent)

	require.Len(t, result.Issues, 1)
	assert.Equal(t, analysis.NativeEscapeName, result.Issues[0].Analyzer)

	registry, err := analysis.NewRegistry(silent)
	require.NoError(t, err)

	_, err = analysis.NewRunner(registry).Run(context.Background(), document(escapeTree()),
		analysis.Config{Enabled: []string{"missing"}})
	require.ErrorIs(t, err, analysis.ErrUnknownAnalyzer)

	_, err = analysis.NewRunner(registry).Run(context.Background(), nil, analysis.Config{})
	require.ErrorIs(t, err, analysis.ErrNilDocument)
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	_, err := analysis.NewRegistry(analysis.NativeEscape{}, analysis.NativeEscape{})
	require.ErrorIs(t, err, analysis.ErrDuplicateAnalyzer)

	unnamed := funcAnalyzer{visit: func(*meta.Node, analysis.Context) ([]analysis.Issue, error) { return nil, nil }}

	_, err = analysis.NewRegistry(unnamed)
	require.ErrorIs(t, err, analysis.ErrEmptyAnalyzerName)
	require.NotErrorIs(t, err, analysis.ErrUnknownAnalyzer)

	_, err = analysis.NewRunner(analysis.DefaultRegistry()).Run(context.Background(), document(escapeTree()),
		analysis.Config{Enabled: []string{""}})
	require.ErrorIs(t, err, analysis.ErrEmptyAnalyzerName)

	registry := analysis.DefaultRegistry()
	assert.Equal(t, []string{analysis.NativeEscapeName}, registry.Names())

	analyzer, ok := registry.Get(analysis.NativeEscapeName)
	require.True(t, ok)
	assert.NotEmpty(t, analyzer.Description())
}
