package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/metaast/pkg/adapter"
	"github.com/Sumatoshi-tech/metaast/pkg/meta"
)

// ErrUnsupportedFormat is returned for an unknown --format value.
var ErrUnsupportedFormat = errors.New("unsupported format")

type parseOptions struct {
	language string
	format   string
	output   string
}

func parseCmd(root *rootOptions) *cobra.Command {
	opts := parseOptions{}

	cmd := &cobra.Command{
		Use:   "parse [files...]",
		Short: "Convert source files into MetaAST",
		Long: `Convert Python or Elixir source into MetaAST documents.

Examples:
  metaast parse app.py                   # JSON document on stdout
  metaast parse -f tree lib/math.ex      # indented tree
  metaast parse -f yaml a.py b.exs       # several files, converted in parallel
  echo 'x + 5' | metaast parse -l elixir # stdin needs --language`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.run(cmd, func(ctx context.Context, application *app) error {
				return runParse(ctx, cmd, application, args, opts)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.language, "language", "l", "", "source language (python, elixir); detected from the file otherwise")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatJSON, "output format (json, yaml, tree)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")

	return cmd
}

func runParse(ctx context.Context, cmd *cobra.Command, application *app, args []string, opts parseOptions) error {
	docs, err := parseInputs(ctx, cmd, application, args, opts.language)
	if err != nil {
		return err
	}

	data, err := renderDocuments(docs, opts.format)
	if err != nil {
		return err
	}

	return writeOutput(opts.output, cmd.OutOrStdout(), data)
}

// parseInputs reads args (stdin when empty) and converts them in parallel.
func parseInputs(ctx context.Context, cmd *cobra.Command, application *app, args []string, language string) ([]*adapter.Document, error) {
	inputs, err := readInputs(args, cmd.InOrStdin())
	if err != nil {
		return nil, err
	}

	sources, err := sourcesOf(inputs, language)
	if err != nil {
		return nil, err
	}

	return application.registry.ParseAll(ctx, sources)
}

// renderDocuments encodes one document as itself and several as a list.
func renderDocuments(docs []*adapter.Document, format string) ([]byte, error) {
	switch format {
	case formatJSON:
		var payload any = docs
		if len(docs) == 1 {
			payload = docs[0]
		}

		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}

		return append(data, '\n'), nil
	case formatYAML:
		var out bytes.Buffer

		for idx, doc := range docs {
			if idx > 0 {
				out.WriteString("---\n")
			}

			fmt.Fprintf(&out, "# %s (%s)\n", documentName(doc), doc.Language)

			data, err := meta.EncodeYAML(doc.AST)
			if err != nil {
				return nil, err
			}

			out.Write(data)
		}

		return out.Bytes(), nil
	case formatTree:
		var out bytes.Buffer

		for _, doc := range docs {
			if len(docs) > 1 {
				fmt.Fprintf(&out, "== %s (%s)\n", documentName(doc), doc.Language)
			}

			out.WriteString(meta.Format(doc.AST))
		}

		return out.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func documentName(doc *adapter.Document) string {
	if name, ok := doc.Metadata["name"].(string); ok {
		return name
	}

	return "-"
}
