package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zdb/zschema/bootstrap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP query API",
	Long: `Start the read-only schema query API.

The catalog is reloaded when the config file changes, on SIGHUP, and,
with catalog.watch enabled, when a file in the catalog directory changes.
A reload that fails keeps serving the previous schemas.

Examples:
  zschema serve
  zschema serve --config /etc/zschema/zschema.yaml`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	bootstrap.Version = version

	app, err := bootstrap.New(cfgFile)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	return app.Run()
}
