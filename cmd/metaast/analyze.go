package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/metaast/pkg/analysis"
	"github.com/Sumatoshi-tech/metaast/pkg/meta"
)

var (
	// ErrIssuesFound is returned when an issue reaches the --fail-on severity.
	ErrIssuesFound = errors.New("analysis found issues")
	// ErrInvalidSeverity is returned for an unknown --fail-on value.
	ErrInvalidSeverity = errors.New("invalid severity")
)

//nolint:gochecknoglobals // Fixed severity ordering.
var severityRank = map[analysis.Severity]int{
	analysis.SeverityInfo:    1,
	analysis.SeverityWarning: 2,
	analysis.SeverityError:   3,
}

type analyzeOptions struct {
	language string
	format   string
	failOn   string
	enable   []string
}

// analysisReport is the output for one file.
type analysisReport struct {
	Name     string           `json:"name"             yaml:"name"`
	Language meta.Language    `json:"language"         yaml:"language"`
	Issues   []analysis.Issue `json:"issues"           yaml:"issues"`
	Faults   []string         `json:"faults,omitempty" yaml:"faults,omitempty"`
}

func analyzeCmd(root *rootOptions) *cobra.Command {
	opts := analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze [files...]",
		Short: "Run language-neutral analyzers over source files",
		Long: `Parse each file to MetaAST and run the configured analyzers over the tree.
The analyzers and their options come from the "analysis" section of the
configuration file; --enable overrides the enabled list.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.run(cmd, func(ctx context.Context, application *app) error {
				return runAnalyze(ctx, cmd, application, args, opts)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.language, "language", "l", "", "source language; detected from the file otherwise")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatTable, "output format (table, json, yaml)")
	cmd.Flags().StringVar(&opts.failOn, "fail-on", string(analysis.SeverityError), "exit non-zero on issues at or above this severity (info, warning, error, none)")
	cmd.Flags().StringSliceVar(&opts.enable, "enable", nil, "analyzers to run (default: configuration, or all)")

	return cmd
}

func runAnalyze(ctx context.Context, cmd *cobra.Command, application *app, args []string, opts analyzeOptions) error {
	threshold, err := failThreshold(opts.failOn)
	if err != nil {
		return err
	}

	docs, err := parseInputs(ctx, cmd, application, args, opts.language)
	if err != nil {
		return err
	}

	cfg := application.cfg.Analysis
	if len(opts.enable) > 0 {
		cfg.Enabled = opts.enable
	}

	reports := make([]analysisReport, 0, len(docs))
	failing := 0

	for _, doc := range docs {
		result, runErr := application.analyzer.Run(ctx, doc, cfg)
		if runErr != nil {
			return runErr
		}

		application.metrics.RecordAnalysis(ctx, result)

		report := analysisReport{Name: documentName(doc), Language: doc.Language, Issues: result.Issues}
		if report.Issues == nil {
			report.Issues = []analysis.Issue{}
		}

		for _, fault := range result.Faults {
			report.Faults = append(report.Faults, fault.Error())
		}

		for _, issue := range result.Issues {
			if threshold > 0 && severityRank[issue.Severity] >= threshold {
				failing++
			}
		}

		reports = append(reports, report)
	}

	err = renderAnalysis(cmd.OutOrStdout(), reports, opts.format)
	if err != nil {
		return err
	}

	if failing > 0 {
		return fmt.Errorf("%w: %d at or above %s", ErrIssuesFound, failing, opts.failOn)
	}

	return nil
}

// failThreshold maps --fail-on to a rank; "none" disables failing.
func failThreshold(name string) (int, error) {
	if name == "none" {
		return 0, nil
	}

	rank, ok := severityRank[analysis.Severity(name)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSeverity, name)
	}

	return rank, nil
}

func renderAnalysis(out io.Writer, reports []analysisReport, format string) error {
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}

		_, err = out.Write(append(data, '\n'))

		return err
	case formatYAML:
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)

		err := encoder.Encode(reports)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		return encoder.Close()
	case formatTable:
		printAnalysis(out, reports)

		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func printAnalysis(out io.Writer, reports []analysisReport) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"FILE", "LINE", "ANALYZER", "SEVERITY", "KIND", "MESSAGE"})

	total := 0

	for _, report := range reports {
		for _, issue := range report.Issues {
			line := "-"
			if issue.Pos != nil {
				line = fmt.Sprintf("%d:%d", issue.Pos.Line, issue.Pos.Column)
			}

			tw.AppendRow(table.Row{
				report.Name,
				line,
				issue.Analyzer,
				colorSeverity(issue.Severity),
				issue.Kind,
				sanitizeForTerminal(issue.Message),
			})

			total++
		}
	}

	if total > 0 {
		tw.Render()
	} else {
		color.New(color.FgGreen).Fprintln(out, "no issues")
	}

	warn := color.New(color.FgYellow)

	for _, report := range reports {
		for _, fault := range report.Faults {
			warn.Fprintf(out, "%s: %s\n", report.Name, sanitizeForTerminal(fault))
		}
	}
}

func colorSeverity(severity analysis.Severity) string {
	switch severity {
	case analysis.SeverityError:
		return color.RedString(string(severity))
	case analysis.SeverityWarning:
		return color.YellowString(string(severity))
	case analysis.SeverityInfo:
		return color.CyanString(string(severity))
	default:
		return string(severity)
	}
}
