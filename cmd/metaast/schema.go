package main

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/metaast/pkg/meta/schema"
)

func schemaCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the MetaAST JSON schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeOutput(output, cmd.OutOrStdout(), schema.Bytes())
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")

	return cmd
}
