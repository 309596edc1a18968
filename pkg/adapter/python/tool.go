package python

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/Sumatoshi-tech/metaast/pkg/meta"
	"github.com/Sumatoshi-tech/metaast/pkg/native"
)

// DefaultCommand is the interpreter ToolFrontend runs.
const DefaultCommand = "python3"

var (
	//go:embed scripts/dump.py
	dumpScript string

	//go:embed scripts/unparse.py
	unparseScript string
)

// ToolFrontend parses and prints through a python3 subprocess using the
// interpreter's own ast module.
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

// Parse runs ast.parse on source.
func (frontend *ToolFrontend) Parse(ctx context.Context, source string) (*Node, error) {
	out, err := frontend.runner.Run(ctx, []byte(source), "-c", dumpScript)
	if err != nil {
		return nil, err
	}

	tree, err := DecodeJSON(out)
	if err != nil {
		return nil, meta.NewToolFailure(meta.LanguagePython, "decode ast dump", err)
	}

	return tree, nil
}

// Unparse runs ast.unparse on native. Trees holding source kept verbatim by
// the tree-sitter frontend have no ast form and are printed in process.
func (frontend *ToolFrontend) Unparse(ctx context.Context, native *Node) (string, error) {
	if containsVerbatim(native) {
		source, err := Print(native)
		if err != nil {
			return "", meta.NewUnsupported(meta.LanguagePython, meta.KindLanguageSpecific, err.Error())
		}

		return source, nil
	}

	payload, err := json.Marshal(native)
	if err != nil {
		return "", fmt.Errorf("encode ast: %w", err)
	}

	out, err := frontend.runner.Run(ctx, payload, "-c", unparseScript)
	if err != nil {
		return "", err
	}

	if len(out) == 0 {
		return "", nil
	}

	return string(out) + "\n", nil
}

func containsVerbatim(root *Node) bool {
	stack := []*Node{root}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if current == nil {
			continue
		}

		if current.Type == typeVerbatim {
			return true
		}

		for _, field := range current.Fields {
			stack = append(stack, field.Nodes...)
		}
	}

	return false
}
