// Package validate checks MetaAST trees against the kind table and reports
// their conformance layer, depth, and free variables.
package validate

import (
	"fmt"
	"slices"

	"github.com/Sumatoshi-tech/metaast/pkg/meta"
	"github.com/Sumatoshi-tech/metaast/pkg/meta/walk"
)

// Violation is one structural problem found in a tree.
type Violation struct {
	Reason string
	Path   []int
	Kind   meta.Kind
}

func (violation Violation) String() string {
	return fmt.Sprintf("%s at %s: %s", violation.Kind, meta.FormatPath(violation.Path), violation.Reason)
}

// Report is the result of classifying a tree.
type Report struct {
	KindCounts    map[meta.Kind]int
	FreeVariables []string
	Violations    []Violation
	Nodes         int
	Depth         int
	Layer         meta.Layer
}

// Valid reports whether the tree had no violations.
func (report Report) Valid() bool {
	return len(report.Violations) == 0
}

// summary is the bottom-up result for one subtree.
type summary struct {
	free  []string
	binds []string
	depth int
	layer meta.Layer
}

type classifyState struct {
	kindCounts map[meta.Kind]int
	open       []*meta.Node
	counters   []int
	path       []int
	violations []Violation
	nodes      int
}

// Classify folds the tree once and returns its layer (the highest layer of
// any node), its depth, the variables it reads without binding, and every
// structural violation.
func Classify(root *meta.Node) Report {
	if root == nil {
		return Report{Violations: []Violation{{Reason: "nil root"}}}
	}

	state := &classifyState{kindCounts: map[meta.Kind]int{}}

	result, _, _ := walk.Fold[*meta.Node, summary, *classifyState](root, state, walk.MetaTree{}, enter, leave)

	return Report{
		Layer:         result.layer,
		Depth:         result.depth,
		FreeVariables: result.free,
		Violations:    state.violations,
		Nodes:         state.nodes,
		KindCounts:    state.kindCounts,
	}
}

// Check returns the first violation as a MalformedNode error.
func Check(root *meta.Node) error {
	report := Classify(root)
	if report.Valid() {
		return nil
	}

	first := report.Violations[0]

	return meta.NewMalformed(first.Kind, first.Path, first.Reason)
}

// ConformsTo reports whether the tree is well formed and uses no kind above layer.
func ConformsTo(root *meta.Node, layer meta.Layer) bool {
	report := Classify(root)

	return report.Valid() && report.Layer <= layer
}

func enter(node *meta.Node, state *classifyState) (*meta.Node, *classifyState, error) {
	if len(state.counters) > 0 {
		state.path = append(state.path, state.counters[len(state.counters)-1])
	}

	state.counters = append(state.counters, 0)
	state.open = append(state.open, node)

	return node, state, nil
}

func leave(node *meta.Node, children []summary, state *classifyState) (summary, *classifyState, error) {
	pushed := len(state.open) > 0 && state.open[len(state.open)-1] == node

	path := slices.Clone(state.path)
	if !pushed && len(state.counters) > 0 {
		path = append(path, state.counters[len(state.counters)-1])
	}

	var result summary

	if node != nil {
		state.nodes++
		state.kindCounts[node.Kind()]++
		state.violations = append(state.violations, checkNode(node, path)...)
		result = summarize(node, children)
	}

	if pushed {
		if len(state.path) > 0 && len(state.path) == len(state.open)-1 {
			state.path = state.path[:len(state.path)-1]
		}

		state.open = state.open[:len(state.open)-1]
		state.counters = state.counters[:len(state.counters)-1]
	}

	if len(state.counters) > 0 {
		state.counters[len(state.counters)-1]++
	}

	return result, state, nil
}

func summarize(node *meta.Node, children []summary) summary {
	result := summary{layer: node.Layer(), depth: 1}

	for _, child := range children {
		result.layer = max(result.layer, child.layer)
		result.depth = max(result.depth, child.depth+1)
	}

	result.free = freeVariables(node, children)

	if meta.BindingOf(node.Kind()).Form == meta.BindsOutward {
		result.binds = meta.BoundNames(node)
	}

	return result
}

func freeVariables(node *meta.Node, children []summary) []string {
	switch attrs := node.Attrs.(type) {
	case meta.VariableAttrs:
		return []string{attrs.Name}
	case meta.LanguageSpecificAttrs:
		return nil
	case meta.FunctionCallAttrs:
		if receiver, ok := meta.CallReceiver(attrs); ok {
			return union([]string{receiver}, unionFree(children...))
		}

		return unionFree(children...)
	default:
	}

	binding := meta.BindingOf(node.Kind())

	switch binding.Form {
	case meta.BindsNothing:
		return unionFree(children...)
	case meta.BindsSequential:
		return sequentialFree(children)
	default:
	}

	bound := meta.BoundNames(node)

	var free []string

	for slot, child := range children {
		if binding.Binds(slot) || binding.Scopes(slot) {
			free = union(free, without(child.free, bound))
		} else {
			free = union(free, child.free)
		}
	}

	return free
}

// sequentialFree makes names bound by earlier statements visible to later ones.
func sequentialFree(children []summary) []string {
	var (
		free  []string
		bound []string
	)

	for _, child := range children {
		free = union(free, without(child.free, bound))
		bound = union(bound, child.binds)
	}

	return free
}

func unionFree(children ...summary) []string {
	var free []string

	for _, child := range children {
		free = union(free, child.free)
	}

	return free
}

func union(left, right []string) []string {
	out := slices.Clone(left)

	for _, name := range right {
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}

	return out
}

func without(names, remove []string) []string {
	if len(remove) == 0 {
		return names
	}

	var out []string

	for _, name := range names {
		if !slices.Contains(remove, name) {
			out = append(out, name)
		}
	}

	return out
}
