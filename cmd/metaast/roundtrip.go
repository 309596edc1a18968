package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/metaast/pkg/adapter"
	"github.com/Sumatoshi-tech/metaast/pkg/meta"
	"github.com/Sumatoshi-tech/metaast/pkg/meta/validate"
	"github.com/Sumatoshi-tech/metaast/pkg/textutil"
)

// ErrRoundTripFailed is returned when a file does not survive source to
// MetaAST to source to MetaAST unchanged.
var ErrRoundTripFailed = errors.New("round trip failed")

type roundtripOptions struct {
	language string
	showDiff bool
}

// roundTrip is the outcome for one file.
type roundTrip struct {
	err   error
	name  string
	diff  string
	layer string
	lang  meta.Language
	size  int
	lines int
	nodes int
	equal bool
}

func roundtripCmd(root *rootOptions) *cobra.Command {
	opts := roundtripOptions{}

	cmd := &cobra.Command{
		Use:   "roundtrip [files...]",
		Short: "Check that files survive conversion to MetaAST and back",
		Long: `Parse each file to MetaAST, print it back in its own language, parse
the output again and compare both trees. Differences are shown as a line diff
of the formatted trees.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.run(cmd, func(ctx context.Context, application *app) error {
				return runRoundtrip(ctx, cmd, application, args, opts)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.language, "language", "l", "", "source language; detected from the file otherwise")
	cmd.Flags().BoolVar(&opts.showDiff, "diff", true, "print tree diffs for failing files")

	return cmd
}

func runRoundtrip(ctx context.Context, cmd *cobra.Command, application *app, args []string, opts roundtripOptions) error {
	docs, err := parseInputs(ctx, cmd, application, args, opts.language)
	if err != nil {
		return err
	}

	results := make([]roundTrip, 0, len(docs))
	for _, doc := range docs {
		results = append(results, checkDocument(ctx, application.registry, doc))
	}

	out := cmd.OutOrStdout()
	printRoundTrips(out, results)

	failed := 0

	for _, result := range results {
		if result.equal {
			continue
		}

		failed++

		if !opts.showDiff {
			continue
		}

		color.New(color.FgRed).Fprintf(out, "\n%s\n", result.name)

		if result.err != nil {
			fmt.Fprintf(out, "  %s\n", sanitizeForTerminal(result.err.Error()))

			continue
		}

		fmt.Fprint(out, result.diff)
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d files", ErrRoundTripFailed, failed, len(results))
	}

	return nil
}

func checkDocument(ctx context.Context, registry *adapter.Registry, doc *adapter.Document) roundTrip {
	report := validate.Classify(doc.AST)

	result := roundTrip{
		name:  documentName(doc),
		lang:  doc.Language,
		size:  len(doc.OriginalSource),
		lines: textutil.CountLines([]byte(doc.OriginalSource)),
		nodes: report.Nodes,
		layer: report.Layer.String(),
	}

	printed, err := registry.Unparse(ctx, doc)
	if err != nil {
		result.err = fmt.Errorf("print: %w", err)

		return result
	}

	again, err := registry.Parse(ctx, doc.Language, printed)
	if err != nil {
		result.err = fmt.Errorf("reparse: %w", err)

		return result
	}

	result.equal = meta.Equal(doc.AST, again.AST)
	if !result.equal {
		result.diff = adapter.LineDiff(meta.Format(doc.AST), meta.Format(again.AST))
	}

	return result
}

func printRoundTrips(out io.Writer, results []roundTrip) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"FILE", "LANGUAGE", "SIZE", "LINES", "NODES", "LAYER", "RESULT"})

	for _, result := range results {
		status := color.GreenString("ok")
		if !result.equal {
			status = color.RedString("FAIL")
		}

		tw.AppendRow(table.Row{
			result.name,
			result.lang,
			humanize.Bytes(uint64(result.size)), //nolint:gosec // Length is never negative.
			humanize.Comma(int64(result.lines)),
			humanize.Comma(int64(result.nodes)),
			result.layer,
			status,
		})
	}

	tw.Render()
}
