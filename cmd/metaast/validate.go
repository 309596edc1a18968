package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/metaast/pkg/meta"
	"github.com/Sumatoshi-tech/metaast/pkg/meta/schema"
	"github.com/Sumatoshi-tech/metaast/pkg/meta/validate"
)

// ErrValidationFailed is returned when at least one input is not conformant.
var ErrValidationFailed = errors.New("validation failed")

type validateOptions struct {
	language string
	format   string
	source   bool
	counts   bool
}

// validation is the outcome for one input.
type validation struct {
	Name          string         `json:"name"`
	Layer         string         `json:"layer,omitempty"`
	Problems      []string       `json:"problems,omitempty"`
	KindCounts    map[string]int `json:"kind_counts,omitempty"`
	FreeVariables []string       `json:"free_variables,omitempty"`
	Nodes         int            `json:"nodes"`
	Depth         int            `json:"depth"`
	Valid         bool           `json:"valid"`
}

func validateCmd(root *rootOptions) *cobra.Command {
	opts := validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate [files...]",
		Short: "Check MetaAST documents for conformance",
		Long: `Check MetaAST trees against the JSON schema and the structural rules
(arity, child kinds, attributes) and report the layer each tree reaches.

Inputs are JSON or YAML trees, or documents produced by "metaast parse".
With --source the inputs are Python or Elixir files, parsed first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.run(cmd, func(ctx context.Context, application *app) error {
				return runValidate(ctx, cmd, application, args, opts)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.source, "source", false, "inputs are source files, not trees")
	cmd.Flags().StringVarP(&opts.language, "language", "l", "", "source language for --source")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatTable, "output format (table, json)")
	cmd.Flags().BoolVar(&opts.counts, "counts", false, "print per-kind node counts")

	return cmd
}

func runValidate(ctx context.Context, cmd *cobra.Command, application *app, args []string, opts validateOptions) error {
	var results []validation

	if opts.source {
		docs, err := parseInputs(ctx, cmd, application, args, opts.language)
		if err != nil {
			return err
		}

		for _, doc := range docs {
			results = append(results, validateTree(documentName(doc), doc.AST))
		}
	} else {
		inputs, err := readInputs(args, cmd.InOrStdin())
		if err != nil {
			return err
		}

		for _, in := range inputs {
			results = append(results, validateDocument(in.label, in.content))
		}
	}

	out := cmd.OutOrStdout()

	switch opts.format {
	case formatJSON:
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}

		_, err = out.Write(append(data, '\n'))
		if err != nil {
			return err
		}
	case formatTable:
		printValidations(out, results, opts.counts)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, opts.format)
	}

	failed := 0

	for _, result := range results {
		if !result.Valid {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d inputs", ErrValidationFailed, failed, len(results))
	}

	return nil
}

// validateDocument checks raw JSON or YAML: schema first, then structure.
func validateDocument(name string, content []byte) validation {
	result := validation{Name: name}

	shape, err := decodeShape(content)
	if err != nil {
		result.Problems = []string{err.Error()}

		return result
	}

	if document, ok := shape.(map[string]any); ok {
		if ast, found := document["ast"]; found {
			shape = ast
		}
	}

	schemaResult, err := schema.Validate(shape)
	if err != nil {
		result.Problems = []string{err.Error()}

		return result
	}

	for _, problem := range schemaResult.Problems {
		result.Problems = append(result.Problems, "schema: "+problem.String())
	}

	encoded, err := json.Marshal(shape)
	if err != nil {
		result.Problems = append(result.Problems, err.Error())

		return result
	}

	root, err := meta.DecodeJSON(encoded)
	if err != nil {
		result.Problems = append(result.Problems, err.Error())

		return result
	}

	structural := validateTree(name, root)
	structural.Problems = append(result.Problems, structural.Problems...)
	structural.Valid = len(structural.Problems) == 0

	return structural
}

// decodeShape reads JSON, falling back to YAML.
func decodeShape(content []byte) (any, error) {
	var shape any

	decoder := json.NewDecoder(bytes.NewReader(content))
	decoder.UseNumber()

	if err := decoder.Decode(&shape); err == nil {
		return shape, nil
	}

	shape = nil

	if err := yaml.Unmarshal(content, &shape); err != nil {
		return nil, fmt.Errorf("%w: neither JSON nor YAML: %w", meta.ErrInvalidDocument, err)
	}

	if shape == nil {
		return nil, fmt.Errorf("%w: empty input", meta.ErrInvalidDocument)
	}

	return shape, nil
}

func validateTree(name string, root *meta.Node) validation {
	report := validate.Classify(root)

	result := validation{
		Name:          name,
		Nodes:         report.Nodes,
		Depth:         report.Depth,
		FreeVariables: report.FreeVariables,
		KindCounts:    make(map[string]int, len(report.KindCounts)),
		Valid:         report.Valid(),
	}

	if report.Layer != 0 {
		result.Layer = report.Layer.String()
	}

	for kind, count := range report.KindCounts {
		result.KindCounts[kind.String()] = count
	}

	for _, violation := range report.Violations {
		result.Problems = append(result.Problems, violation.String())
	}

	return result
}

func printValidations(out io.Writer, results []validation, counts bool) {
	good := color.New(color.FgGreen)
	bad := color.New(color.FgRed)

	for _, result := range results {
		if result.Valid {
			good.Fprintf(out, "✓ %s", result.Name)
			fmt.Fprintf(out, ": %s layer, %s nodes, depth %d\n",
				result.Layer, humanize.Comma(int64(result.Nodes)), result.Depth)
		} else {
			bad.Fprintf(out, "✗ %s", result.Name)
			fmt.Fprintf(out, ": %d problem(s)\n", len(result.Problems))

			for _, problem := range result.Problems {
				fmt.Fprintf(out, "  - %s\n", sanitizeForTerminal(problem))
			}
		}

		if counts && len(result.KindCounts) > 0 {
			printKindCounts(out, result.KindCounts)
		}
	}
}

func printKindCounts(out io.Writer, kindCounts map[string]int) {
	kinds := make([]string, 0, len(kindCounts))
	for kind := range kindCounts {
		kinds = append(kinds, kind)
	}

	slices.Sort(kinds)

	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"KIND", "LAYER", "COUNT"})

	for _, name := range kinds {
		layer := ""
		if kind, err := meta.ParseKind(name); err == nil {
			layer = meta.LayerOf(kind).String()
		}

		tw.AppendRow(table.Row{name, layer, humanize.Comma(int64(kindCounts[name]))})
	}

	tw.Render()
}
