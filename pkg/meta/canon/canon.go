// Package canon rewrites language-specific collection calls into the
// canonical CollectionOp form so that equivalent code in different languages
// yields equal trees.
package canon

import (
	"github.com/Sumatoshi-tech/metaast/pkg/meta"
)

// Rule describes where the parts of a collection call sit among its
// arguments. InitialArg is -1 when the operation takes no initial value.
type Rule struct {
	OpType        meta.CollectionOpType
	FunctionArg   int
	CollectionArg int
	InitialArg    int
	LambdaParams  int
}

type ruleKey struct {
	language meta.Language
	name     string
}

// rules maps (language, call name) to its canonical shape.
//
//nolint:gochecknoglobals // Immutable rule table.
var rules = map[ruleKey]Rule{
	{meta.LanguagePython, "map"}:              {OpType: meta.CollectionMap, FunctionArg: 0, CollectionArg: 1, InitialArg: -1, LambdaParams: 1},
	{meta.LanguagePython, "filter"}:           {OpType: meta.CollectionFilter, FunctionArg: 0, CollectionArg: 1, InitialArg: -1, LambdaParams: 1},
	{meta.LanguagePython, "reduce"}:           {OpType: meta.CollectionReduce, FunctionArg: 0, CollectionArg: 1, InitialArg: 2, LambdaParams: 2},
	{meta.LanguagePython, "functools.reduce"}: {OpType: meta.CollectionReduce, FunctionArg: 0, CollectionArg: 1, InitialArg: 2, LambdaParams: 2},

	{meta.LanguageElixir, "Enum.map"}:    {OpType: meta.CollectionMap, FunctionArg: 1, CollectionArg: 0, InitialArg: -1, LambdaParams: 1},
	{meta.LanguageElixir, "Enum.filter"}: {OpType: meta.CollectionFilter, FunctionArg: 1, CollectionArg: 0, InitialArg: -1, LambdaParams: 1},
	{meta.LanguageElixir, "Enum.each"}:   {OpType: meta.CollectionEach, FunctionArg: 1, CollectionArg: 0, InitialArg: -1, LambdaParams: 1},
	{meta.LanguageElixir, "Enum.reduce"}: {OpType: meta.CollectionReduce, FunctionArg: 2, CollectionArg: 0, InitialArg: 1, LambdaParams: 2},
}

// Lookup returns the rule for a call name in language.
func Lookup(language meta.Language, name string) (Rule, bool) {
	rule, ok := rules[ruleKey{language: language, name: name}]

	return rule, ok
}

// ReverseLookup finds the call name that expresses opType in language.
func ReverseLookup(language meta.Language, opType meta.CollectionOpType) (string, Rule, bool) {
	var (
		found     string
		foundOK   bool
		foundRule Rule
	)

	for key, rule := range rules {
		if key.language != language || rule.OpType != opType {
			continue
		}

		// Prefer the shortest spelling so the choice is deterministic.
		if !foundOK || len(key.name) < len(found) || (len(key.name) == len(found) && key.name < found) {
			found, foundRule, foundOK = key.name, rule, true
		}
	}

	return found, foundRule, foundOK
}

func (rule Rule) arity() int {
	if rule.InitialArg >= 0 {
		return 3
	}

	return 2
}

// Collection rewrites node into a CollectionOp when it is a plain call that
// matches a rule and passes a lambda of the right shape. Every other node,
// including an existing CollectionOp, is returned unchanged.
func Collection(node *meta.Node, language meta.Language) *meta.Node {
	call, ok := node.Attrs.(meta.FunctionCallAttrs)
	if !ok || call.Receiver {
		return node
	}

	rule, ok := Lookup(language, call.Name)
	if !ok || len(node.Children) != rule.arity() {
		return node
	}

	fn := node.Children[rule.FunctionArg]
	if fn == nil {
		return node
	}

	lambda, ok := fn.Attrs.(meta.LambdaAttrs)
	if !ok || len(lambda.Params) != rule.LambdaParams {
		return node
	}

	var initial *meta.Node
	if rule.InitialArg >= 0 {
		initial = node.Children[rule.InitialArg]
	}

	canonical := meta.NewCollectionOp(rule.OpType, fn, node.Children[rule.CollectionArg], initial)

	metadata := &meta.Metadata{Hints: map[string]string{meta.HintCallee: call.Name}}
	if node.Meta != nil {
		metadata.Pos = node.Meta.Pos
	}

	return canonical.WithMeta(metadata)
}

// CallArgs lays out the children of a CollectionOp as call arguments in the
// order rule expects.
func CallArgs(rule Rule, op *meta.Node) []*meta.Node {
	args := make([]*meta.Node, rule.arity())
	args[rule.FunctionArg] = op.Child(0)
	args[rule.CollectionArg] = op.Child(1)

	if rule.InitialArg >= 0 {
		args[rule.InitialArg] = op.Child(2)
	}

	return args
}
