package main

import (
	"context"

	"github.com/spf13/cobra"
)

type translateOptions struct {
	from   string
	to     string
	output string
}

func translateCmd(root *rootOptions) *cobra.Command {
	opts := translateOptions{}

	cmd := &cobra.Command{
		Use:   "translate [file]",
		Short: "Print source from one language in another",
		Long: `Parse a file in its own language and print the MetaAST in the target
language. Constructs with no counterpart in the target are rejected.

Example:
  metaast translate --to elixir transform.py`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.run(cmd, func(ctx context.Context, application *app) error {
				return runTranslate(ctx, cmd, application, args, opts)
			})
		},
	}

	cmd.Flags().StringVar(&opts.from, "from", "", "source language; detected from the file otherwise")
	cmd.Flags().StringVar(&opts.to, "to", "", "target language (python, elixir)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")

	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func runTranslate(ctx context.Context, cmd *cobra.Command, application *app, args []string, opts translateOptions) error {
	target, err := parseLanguage(opts.to)
	if err != nil {
		return err
	}

	inputs, err := readInputs(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	from, err := detectLanguage(inputs[0], opts.from)
	if err != nil {
		return err
	}

	printed, err := application.registry.Translate(ctx, string(inputs[0].content), from, target)
	if err != nil {
		return err
	}

	return writeOutput(opts.output, cmd.OutOrStdout(), []byte(printed))
}
