package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/zdb/zschema/bootstrap"
	"github.com/zdb/zschema/config"
	"github.com/zdb/zschema/core/formatter"
)

var (
	// Global flags
	cfgFile      string
	outputFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "zschema",
	Short: "Schema catalog for network scan documents",
	Long: `zschema holds the field schemas of scan documents and projects them
onto the export targets (Elasticsearch mappings, BigQuery table schemas).

Browsing:
  zschema list                  # List registered schemas
  zschema show ipv4host         # Print a schema tree

Exporting:
  zschema render ipv4host -t bq # Render a BigQuery table schema
  zschema snapshot              # Record rendered exports
  zschema diff ipv4host -t bq   # Compare the catalog against the last snapshot

Serving:
  zschema serve                 # Start the HTTP query API`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "zschema.yaml", "config file path")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", fmt.Sprintf("output format %v (default table)", formatter.List()))
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)

// env is what most commands need: configuration, a logger and the loaded
// schema set.
type env struct {
	cfg     *config.Config
	logger  zerolog.Logger
	schemas *bootstrap.Schemas
}

func loadEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	logger := bootstrap.NewLogger(cfg.Logging, cmd.ErrOrStderr())

	s, err := bootstrap.LoadSchemas(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, schemas: s}, nil
}

func outputFormatter() (formatter.Formatter, error) {
	return formatter.Lookup(outputFormat)
}
