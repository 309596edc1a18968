// Package adapter defines the per-language adapter contract, the document
// wrapper that travels between tools, and the registry that binds adapters to
// native frontends.
package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/metaast/pkg/meta"
)

// ErrUnknownLanguage is returned for languages without a registered binding.
var ErrUnknownLanguage = errors.New("unknown language")

// FromMetaOptions tunes native reconstruction.
type FromMetaOptions struct {
	// IgnoreHints rebuilds native trees without consulting spelling and form
	// hints, producing the canonical surface form.
	IgnoreHints bool
}

// Adapter converts between a language's native AST type N and MetaAST.
//
// Implementations must satisfy the round-trip law:
// ToMeta(FromMeta(ToMeta(a))) equals ToMeta(a) under meta.Equal.
type Adapter[N any] interface {
	Language() meta.Language
	ToMeta(native N) (*meta.Node, error)
	FromMeta(node *meta.Node, opts FromMetaOptions) (N, error)
}

// Frontend is the native parser and printer for one language.
type Frontend[N any] interface {
	Parse(ctx context.Context, source string) (N, error)
	Unparse(ctx context.Context, native N) (string, error)
}

// Document is a MetaAST tree together with where it came from.
type Document struct {
	AST            *meta.Node     `json:"ast"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Language       meta.Language  `json:"language"`
	OriginalSource string         `json:"original_source,omitempty"`
}

// Binding is a language-erased adapter plus frontend pair.
type Binding interface {
	Language() meta.Language
	Parse(ctx context.Context, source string) (*Document, error)
	Unparse(ctx context.Context, doc *Document) (string, error)
}

type binding[N any] struct {
	adapter  Adapter[N]
	frontend Frontend[N]
}

// Bind pairs an adapter with the frontend for the same native type.
func Bind[N any](adapter Adapter[N], frontend Frontend[N]) Binding {
	return &binding[N]{adapter: adapter, frontend: frontend}
}

func (bound *binding[N]) Language() meta.Language {
	return bound.adapter.Language()
}

func (bound *binding[N]) Parse(ctx context.Context, source string) (*Document, error) {
	native, err := bound.frontend.Parse(ctx, source)
	if err != nil {
		return nil, err
	}

	ast, err := bound.adapter.ToMeta(native)
	if err != nil {
		return nil, err
	}

	return &Document{
		AST:            ast,
		Language:       bound.adapter.Language(),
		OriginalSource: source,
		Metadata:       map[string]any{},
	}, nil
}

func (bound *binding[N]) Unparse(ctx context.Context, doc *Document) (string, error) {
	if doc == nil || doc.AST == nil {
		return "", meta.NewMalformed(meta.KindInvalid, nil, "document has no tree")
	}

	native, err := bound.adapter.FromMeta(doc.AST, FromMetaOptions{})
	if err != nil {
		return "", err
	}

	source, err := bound.frontend.Unparse(ctx, native)
	if err != nil {
		return "", fmt.Errorf("unparse %s: %w", bound.adapter.Language(), err)
	}

	return source, nil
}
