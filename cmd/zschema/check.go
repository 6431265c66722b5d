package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zdb/zschema/bootstrap"
	"github.com/zdb/zschema/config"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration and catalog before deployment",
	Long: `Validate the zschema configuration file and the schema catalog.

Checks:
  - Config syntax is valid
  - Every catalog record, alias and document resolves
  - The snapshot store can be opened (optional)

Examples:
  zschema check
  zschema check --config /etc/zschema/zschema.yaml --check-store`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

var checkStore bool

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVar(&checkStore, "check-store", false, "check that the snapshot store opens")
}

func runCheck(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Checking %s...\n\n", cfgFile)

	if _, err := os.Stat(cfgFile); err != nil {
		fmt.Fprintf(out, "  - No config file, using defaults and environment\n")
	}

	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		fmt.Fprintf(out, "  %s Config valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Fprintf(out, "  %s Config valid\n", checkMark)

	logger := bootstrap.NewLogger(cfg.Logging, cmd.ErrOrStderr())
	s, err := bootstrap.LoadSchemas(cfg, logger)
	if err != nil {
		fmt.Fprintf(out, "  %s Catalog loads\n", crossMark)
		return err
	}
	source := "embedded"
	if cfg.Catalog.Dir != "" {
		source = cfg.Catalog.Dir
	}
	fmt.Fprintf(out, "  %s Catalog loads (%s)\n", checkMark, source)
	fmt.Fprintf(out, "  %s Schemas: %d\n", checkMark, s.Registry.Len())
	fmt.Fprintf(out, "  %s Documents: %d\n", checkMark, len(s.Catalog.Documents))
	fmt.Fprintf(out, "  %s Lint rules: %d\n", checkMark, s.Catalog.Rules.Len())
	for _, r := range s.Catalog.Redefinitions {
		fmt.Fprintf(out, "  ! %s declared more than once, last declaration kept\n", r)
	}

	if checkStore {
		store, err := bootstrap.OpenStore(cfg, logger)
		if err != nil {
			fmt.Fprintf(out, "  %s Snapshot store: %s\n", crossMark, cfg.Snapshot.DSN)
			fmt.Fprintf(out, "      Error: %v\n", err)
			return err
		}
		store.Close()
		fmt.Fprintf(out, "  %s Snapshot store: %s\n", checkMark, cfg.Snapshot.DSN)
	}

	fmt.Fprintf(out, "\nConfiguration is valid.\n")
	return nil
}
