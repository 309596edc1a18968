package elixir

import (
	"context"
	_ "embed"

	"github.com/Sumatoshi-tech/metaast/pkg/meta"
	"github.com/Sumatoshi-tech/metaast/pkg/native"
)

// DefaultCommand is the interpreter ToolFrontend runs.
const DefaultCommand = "elixir"

var (
	//go:embed scripts/quote.exs
	quoteScript string

	//go:embed scripts/unquote.exs
	unquoteScript string
)

// ToolFrontend parses with Code.string_to_quoted and prints with
// Macro.to_string in an elixir subprocess.
type ToolFrontend struct {
	runner *native.Runner
}

// NewToolFrontend creates a frontend that runs runner's interpreter.
func NewToolFrontend(runner *native.Runner) *ToolFrontend {
	return &ToolFrontend{runner: runner}
}

// Available reports whether the interpreter is installed.
func (frontend *ToolFrontend) Available() bool {
	return frontend.runner.Available()
}

// Parse quotes source.
func (frontend *ToolFrontend) Parse(ctx context.Context, source string) (Term, error) {
	out, err := frontend.runner.Run(ctx, []byte(source), "-e", quoteScript)
	if err != nil {
		return nil, err
	}

	term, err := DecodeJSON(out)
	if err != nil {
		return nil, meta.NewToolFailure(meta.LanguageElixir, "decode quoted form", err)
	}

	return term, nil
}

// Unparse prints native through Macro.to_string.
func (frontend *ToolFrontend) Unparse(ctx context.Context, native Term) (string, error) {
	literal, err := Inspect(native)
	if err != nil {
		return "", meta.NewUnsupported(meta.LanguageElixir, meta.KindLanguageSpecific, err.Error())
	}

	out, err := frontend.runner.Run(ctx, []byte(literal), "-e", unquoteScript)
	if err != nil {
		return "", err
	}

	if len(out) == 0 {
		return "", nil
	}

	return string(out) + "\n", nil
}
