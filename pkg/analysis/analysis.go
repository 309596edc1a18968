// Package analysis runs language-neutral analyzers over MetaAST documents.
// Analyzers are visited once per node in post-order; an analyzer that fails
// is isolated and the rest keep running.
package analysis

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/Sumatoshi-tech/metaast/pkg/meta"
)

// Severity ranks an issue.
type Severity string

// Severities.
const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Sentinel errors.
var (
	ErrDuplicateAnalyzer = errors.New("duplicate analyzer")
	ErrUnknownAnalyzer   = errors.New("unknown analyzer")
	ErrEmptyAnalyzerName = errors.New("empty analyzer name")
	ErrAnalyzerPanic     = errors.New("analyzer panicked")
	ErrNilDocument       = errors.New("nil document")
)

// Issue is one finding reported by an analyzer.
type Issue struct {
	Pos      *meta.Position `json:"pos,omitempty"      yaml:"pos,omitempty"`
	Analyzer string         `json:"analyzer"           yaml:"analyzer"`
	Message  string         `json:"message"            yaml:"message"`
	Severity Severity       `json:"severity"           yaml:"severity"`
	Kind     meta.Kind      `json:"kind"               yaml:"kind"`
	Path     []int          `json:"path,omitempty"     yaml:"path,omitempty"`
}

// Fault records an analyzer that stopped contributing issues.
type Fault struct {
	Err      error
	Analyzer string
}

func (fault Fault) Error() string {
	return fmt.Sprintf("analyzer %s: %v", fault.Analyzer, fault.Err)
}

// Unwrap returns the underlying failure.
func (fault Fault) Unwrap() error {
	return fault.Err
}

// Result collects the issues of every healthy analyzer and the faults of the others.
type Result struct {
	Issues []Issue
	Faults []Fault
}

// Context is what an analyzer sees about the node it is visiting.
type Context struct {
	// Config holds the options configured for the running analyzer.
	Config map[string]any
	// Parents is root-first and excludes the visited node.
	Parents []*meta.Node
	// Scope lists the names bound around the node, outermost first.
	Scope []string
	Depth int
}

// Parent returns the closest enclosing node, or nil at the root.
func (ctx Context) Parent() *meta.Node {
	if len(ctx.Parents) == 0 {
		return nil
	}

	return ctx.Parents[len(ctx.Parents)-1]
}

// InScope reports whether name is bound around the visited node.
func (ctx Context) InScope(name string) bool {
	return slices.Contains(ctx.Scope, name)
}

// Analyzer inspects one node at a time.
type Analyzer interface {
	Name() string
	Description() string
	Visit(node *meta.Node, ctx Context) ([]Issue, error)
}

// KindFilter is implemented by analyzers that only care about some kinds.
type KindFilter interface {
	Kinds() []meta.Kind
}

// Config selects analyzers and their options. An empty Enabled list runs
// every registered analyzer.
type Config struct {
	Options map[string]map[string]any `mapstructure:"options" yaml:"options"`
	Enabled []string                  `mapstructure:"enabled" yaml:"enabled"`
}

// Registry is a fixed set of analyzers keyed by name.
type Registry struct {
	analyzers map[string]Analyzer
}

// NewRegistry indexes analyzers by name. Names must be unique and non-empty.
func NewRegistry(analyzers ...Analyzer) (*Registry, error) {
	registry := &Registry{analyzers: make(map[string]Analyzer, len(analyzers))}

	for _, analyzer := range analyzers {
		name := analyzer.Name()
		if name == "" {
			return nil, fmt.Errorf("%w: %T", ErrEmptyAnalyzerName, analyzer)
		}

		if _, exists := registry.analyzers[name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAnalyzer, name)
		}

		registry.analyzers[name] = analyzer
	}

	return registry, nil
}

// DefaultRegistry holds the built-in analyzers.
func DefaultRegistry() *Registry {
	builtin := NativeEscape{}

	return &Registry{analyzers: map[string]Analyzer{builtin.Name(): builtin}}
}

// Get returns the analyzer registered under name.
func (registry *Registry) Get(name string) (Analyzer, bool) {
	analyzer, ok := registry.analyzers[name]

	return analyzer, ok
}

// Names returns the registered names in sorted order.
func (registry *Registry) Names() []string {
	names := make([]string, 0, len(registry.analyzers))

	for name := range registry.analyzers {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// selected resolves cfg.Enabled against the registry, in sorted name order.
func (registry *Registry) selected(cfg Config) ([]Analyzer, error) {
	names := cfg.Enabled
	if len(names) == 0 {
		names = registry.Names()
	} else {
		names = slices.Clone(names)
		sort.Strings(names)
		names = slices.Compact(names)
	}

	analyzers := make([]Analyzer, 0, len(names))

	for _, name := range names {
		if name == "" {
			return nil, ErrEmptyAnalyzerName
		}

		analyzer, ok := registry.analyzers[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownAnalyzer, name)
		}

		analyzers = append(analyzers, analyzer)
	}

	return analyzers, nil
}
