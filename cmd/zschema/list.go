package main

import (
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered schemas",
	Long: `List every registered schema with its base schema, field count and
the targets it is hidden from.

Examples:
  zschema list
  zschema list -o json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	f, err := outputFormatter()
	if err != nil {
		return err
	}
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}

	sums, err := e.schemas.Registry.Summaries()
	if err != nil {
		return err
	}
	return f.FormatSummaries(cmd.OutOrStdout(), sums)
}
