package main

import (
	"github.com/spf13/cobra"

	"github.com/zdb/zschema/core/schema"
)

var showCmd = &cobra.Command{
	Use:   "show <schema>",
	Short: "Print the field tree of a schema",
	Example: `  zschema show ztag_https
  zschema show certificate -o yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	f, err := outputFormatter()
	if err != nil {
		return err
	}
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}

	rec, err := e.schemas.Registry.Get(args[0])
	if err != nil {
		return err
	}
	desc := schema.Describe(rec)
	desc.Name = args[0]
	return f.FormatSchema(cmd.OutOrStdout(), desc)
}
