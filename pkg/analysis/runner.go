package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/metaast/pkg/adapter"
	"github.com/Sumatoshi-tech/metaast/pkg/meta"
	"github.com/Sumatoshi-tech/metaast/pkg/meta/walk"
)

const tracerName = "metaast/analysis"

// Runner drives the analyzers of a registry over documents.
type Runner struct {
	registry *Registry
	tracer   trace.Tracer
	logger   *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger used to report analyzer faults.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(runner *Runner) {
		if logger != nil {
			runner.logger = logger
		}
	}
}

// WithTracer replaces the global tracer.
func WithTracer(tracer trace.Tracer) RunnerOption {
	return func(runner *Runner) {
		if tracer != nil {
			runner.tracer = tracer
		}
	}
}

// NewRunner creates a runner over registry.
func NewRunner(registry *Registry, opts ...RunnerOption) *Runner {
	runner := &Runner{
		registry: registry,
		tracer:   otel.Tracer(tracerName),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(runner)
	}

	return runner
}

// hookSet is one analyzer plus the kinds it subscribed to. A nil kinds set
// means every kind.
type hookSet struct {
	analyzer Analyzer
	kinds    map[meta.Kind]bool
	options  map[string]any
}

type runState struct {
	faults map[string]error
}

// Run visits every node of doc once. Issues are returned in post-order. An
// analyzer that errors or panics is disabled for the rest of the run and all
// of its issues are dropped; the returned error is reserved for problems
// with the document or the configuration.
func (runner *Runner) Run(ctx context.Context, doc *adapter.Document, cfg Config) (Result, error) {
	if doc == nil || doc.AST == nil {
		return Result{}, ErrNilDocument
	}

	ctx, span := runner.tracer.Start(ctx, "analysis.run",
		trace.WithAttributes(attribute.String("metaast.language", string(doc.Language))))
	defer span.End()

	analyzers, err := runner.registry.selected(cfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return Result{}, err
	}

	hooks := make([]hookSet, 0, len(analyzers))

	for _, analyzer := range analyzers {
		hooks = append(hooks, newHookSet(analyzer, cfg.Options[analyzer.Name()]))
	}

	state := &runState{faults: map[string]error{}}

	post := func(node *meta.Node, visit walk.Context, state *runState) ([]Issue, *runState, error) {
		return runner.visit(node, visit, hooks, state), state, nil
	}

	issues, state, err := walk.Visit[Issue, *runState](doc.AST, state, nil, post)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return Result{}, fmt.Errorf("analyze: %w", err)
	}

	result := Result{Issues: make([]Issue, 0, len(issues))}

	for _, issue := range issues {
		if _, faulted := state.faults[issue.Analyzer]; !faulted {
			result.Issues = append(result.Issues, issue)
		}
	}

	for _, hook := range hooks {
		name := hook.analyzer.Name()
		if fault, faulted := state.faults[name]; faulted {
			result.Faults = append(result.Faults, Fault{Analyzer: name, Err: fault})
			runner.logger.WarnContext(ctx, "analyzer disabled", "analyzer", name, "error", fault)
		}
	}

	span.SetAttributes(
		attribute.Int("analysis.analyzers", len(hooks)),
		attribute.Int("analysis.issues", len(result.Issues)),
		attribute.Int("analysis.faults", len(result.Faults)),
	)

	return result, nil
}

func newHookSet(analyzer Analyzer, options map[string]any) hookSet {
	hook := hookSet{analyzer: analyzer, options: options}

	if filter, ok := analyzer.(KindFilter); ok {
		hook.kinds = make(map[meta.Kind]bool)

		for _, kind := range filter.Kinds() {
			hook.kinds[kind] = true
		}
	}

	return hook
}

func (runner *Runner) visit(node *meta.Node, visit walk.Context, hooks []hookSet, state *runState) []Issue {
	var (
		issues  []Issue
		scope   []string
		path    []int
		derived bool
	)

	for _, hook := range hooks {
		name := hook.analyzer.Name()

		if _, faulted := state.faults[name]; faulted {
			continue
		}

		if hook.kinds != nil && !hook.kinds[node.Kind()] {
			continue
		}

		if !derived {
			scope = scopeOf(visit.Parents, node)
			path = pathOf(visit.Parents, node)
			derived = true
		}

		found, err := safeVisit(hook.analyzer, node, Context{
			Config:  hook.options,
			Parents: visit.Parents,
			Depth:   visit.Depth,
			Scope:   scope,
		})
		if err != nil {
			state.faults[name] = err

			continue
		}

		for _, issue := range found {
			issue.Analyzer = name

			if issue.Kind == meta.KindInvalid {
				issue.Kind = node.Kind()
			}

			if issue.Pos == nil {
				issue.Pos = node.Pos()
			}

			if issue.Path == nil {
				issue.Path = path
			}

			if issue.Severity == "" {
				issue.Severity = SeverityWarning
			}

			issues = append(issues, issue)
		}
	}

	return issues
}

func safeVisit(analyzer Analyzer, node *meta.Node, ctx Context) (issues []Issue, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			issues = nil
			err = fmt.Errorf("%w: %v", ErrAnalyzerPanic, recovered)
		}
	}()

	return analyzer.Visit(node, ctx)
}

// pathOf returns the child indices leading from the root to node.
func pathOf(parents []*meta.Node, node *meta.Node) []int {
	path := make([]int, 0, len(parents))

	for idx, parent := range parents {
		path = append(path, slices.Index(parent.Children, onPath(parents, idx, node)))
	}

	return path
}

// onPath is the child of parents[idx] on the way down to node.
func onPath(parents []*meta.Node, idx int, node *meta.Node) *meta.Node {
	if idx+1 < len(parents) {
		return parents[idx+1]
	}

	return node
}

// scopeOf lists the names bound by the enclosing nodes. Binders only scope
// over their body, so a for-each collection or a match scrutinee does not
// see the names it introduces. Inside a Block, assignments of earlier
// statements are visible to later ones.
func scopeOf(parents []*meta.Node, node *meta.Node) []string {
	var scope []string

	add := func(names ...string) {
		for _, name := range names {
			if name != "" && !slices.Contains(scope, name) {
				scope = append(scope, name)
			}
		}
	}

	for idx, parent := range parents {
		child := onPath(parents, idx, node)
		position := slices.Index(parent.Children, child)

		binding := meta.BindingOf(parent.Kind())

		switch binding.Form {
		case meta.BindsSequential:
			for _, earlier := range parent.Children[:max(position, 0)] {
				if meta.BindingOf(earlier.Kind()).Form == meta.BindsOutward {
					add(meta.BoundNames(earlier)...)
				}
			}
		case meta.BindsNothing:
		default:
			if binding.Scopes(position) {
				add(meta.BoundNames(parent)...)
			}
		}
	}

	return scope
}
