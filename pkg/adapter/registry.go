package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/metaast/pkg/meta"
)

// Operation names reported to observers.
const (
	OpParse   = "parse"
	OpUnparse = "unparse"
)

// DefaultWorkers bounds ParseAll when no worker count is configured.
const DefaultWorkers = 4

// Observer receives one call per conversion.
type Observer interface {
	ObserveConversion(ctx context.Context, language meta.Language, operation string, elapsed time.Duration, err error)
}

// Source is one input of a batch conversion.
type Source struct {
	Name     string
	Language meta.Language
	Text     string
}

// Registry maps languages to bindings. It is built once and read-only
// afterwards, so it is safe for concurrent use.
type Registry struct {
	bindings map[meta.Language]Binding
	logger   *slog.Logger
	observer Observer
	workers  int
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(registry *Registry) {
		registry.logger = logger
	}
}

// WithObserver sets the conversion observer.
func WithObserver(observer Observer) RegistryOption {
	return func(registry *Registry) {
		registry.observer = observer
	}
}

// WithWorkers bounds the parallelism of ParseAll.
func WithWorkers(workers int) RegistryOption {
	return func(registry *Registry) {
		if workers > 0 {
			registry.workers = workers
		}
	}
}

// NewRegistry builds a registry from bindings keyed by their language.
func NewRegistry(bindings []Binding, opts ...RegistryOption) *Registry {
	registry := &Registry{
		bindings: make(map[meta.Language]Binding, len(bindings)),
		logger:   slog.New(slog.DiscardHandler),
		workers:  DefaultWorkers,
	}

	for _, bound := range bindings {
		registry.bindings[bound.Language()] = bound
	}

	for _, opt := range opts {
		opt(registry)
	}

	return registry
}

// Binding returns the binding for language.
func (registry *Registry) Binding(language meta.Language) (Binding, error) {
	bound, ok := registry.bindings[language]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, language)
	}

	return bound, nil
}

// Languages returns the registered languages in sorted order.
func (registry *Registry) Languages() []meta.Language {
	languages := make([]meta.Language, 0, len(registry.bindings))

	for language := range registry.bindings {
		languages = append(languages, language)
	}

	slices.Sort(languages)

	return languages
}

// Parse converts source in language to a Document.
func (registry *Registry) Parse(ctx context.Context, language meta.Language, source string) (*Document, error) {
	bound, err := registry.Binding(language)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	doc, err := bound.Parse(ctx, source)
	registry.observe(ctx, language, OpParse, started, err)

	return doc, err
}

// Unparse renders a Document in its own language.
func (registry *Registry) Unparse(ctx context.Context, doc *Document) (string, error) {
	if doc == nil {
		return "", meta.NewMalformed(meta.KindInvalid, nil, "nil document")
	}

	return registry.unparseAs(ctx, doc, doc.Language)
}

// Translate parses source in one language and prints the tree in another.
// Constructs with no form in the target fail with UnsupportedConstruct.
func (registry *Registry) Translate(ctx context.Context, source string, from, to meta.Language) (string, error) {
	doc, err := registry.Parse(ctx, from, source)
	if err != nil {
		return "", err
	}

	return registry.unparseAs(ctx, doc, to)
}

func (registry *Registry) unparseAs(ctx context.Context, doc *Document, language meta.Language) (string, error) {
	bound, err := registry.Binding(language)
	if err != nil {
		return "", err
	}

	started := time.Now()
	source, err := bound.Unparse(ctx, doc)
	registry.observe(ctx, language, OpUnparse, started, err)

	return source, err
}

// ParseAll converts disjoint sources in parallel. Results keep input order.
// The first failure cancels the remaining conversions and is returned.
func (registry *Registry) ParseAll(ctx context.Context, sources []Source) ([]*Document, error) {
	docs := make([]*Document, len(sources))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(registry.workers)

	for idx, source := range sources {
		group.Go(func() error {
			doc, err := registry.Parse(groupCtx, source.Language, source.Text)
			if err != nil {
				return fmt.Errorf("%s: %w", source.Name, err)
			}

			if source.Name != "" {
				if doc.Metadata == nil {
					doc.Metadata = map[string]any{}
				}

				doc.Metadata["name"] = source.Name
			}

			docs[idx] = doc

			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		return nil, err
	}

	return docs, nil
}

func (registry *Registry) observe(ctx context.Context, language meta.Language, operation string, started time.Time, err error) {
	elapsed := time.Since(started)

	if err != nil {
		registry.logger.DebugContext(ctx, "conversion failed",
			"language", string(language), "operation", operation,
			"code", string(meta.CodeOf(err)), "error", err)
	} else {
		registry.logger.DebugContext(ctx, "conversion done",
			"language", string(language), "operation", operation, "elapsed", elapsed)
	}

	if registry.observer != nil {
		registry.observer.ObserveConversion(ctx, language, operation, elapsed, err)
	}
}
