package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zdb/zschema/core/render"
	"github.com/zdb/zschema/core/schema"
)

var renderCmd = &cobra.Command{
	Use:   "render [schema...]",
	Short: "Render schemas for an export target",
	Long: `Render schemas as Elasticsearch mappings or BigQuery table schemas.

With --out, every named schema (or every aggregate document when none
is named) is written to <dir>/<schema>.<target>.json instead of stdout.

Examples:
  zschema render ipv4host --target bigquery
  zschema render certificate -t es
  zschema render --out exports -t bq`,
	RunE: runRender,
}

var (
	renderTarget string
	renderOutDir string
)

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderTarget, "target", "t", "elasticsearch", "export target (elasticsearch|es|bigquery|bq)")
	renderCmd.Flags().StringVar(&renderOutDir, "out", "", "write one file per schema into this directory")
}

func runRender(cmd *cobra.Command, args []string) error {
	target, err := schema.ParseTarget(renderTarget)
	if err != nil {
		return err
	}
	if renderOutDir == "" && len(args) != 1 {
		return fmt.Errorf("render to stdout takes exactly one schema, got %d", len(args))
	}

	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}

	if renderOutDir == "" {
		body, err := renderJSON(e, args[0], target)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(body)
		return err
	}

	names := args
	if len(names) == 0 {
		names = documentNames(e)
	}
	if err := os.MkdirAll(renderOutDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	// Aggregate documents are large; render them in parallel and report
	// in argument order.
	paths := make([]string, len(names))
	g, _ := errgroup.WithContext(cmd.Context())
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, name := range names {
		g.Go(func() error {
			body, err := renderJSON(e, name, target)
			if err != nil {
				return err
			}
			path := filepath.Join(renderOutDir, name+"."+target.String()+".json")
			if err := os.WriteFile(path, body, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, path := range paths {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\n", checkMark, path)
	}
	return nil
}

// renderJSON renders one schema as indented JSON terminated by a newline.
// The same bytes are stored by snapshot, so diffs compare like with like.
func renderJSON(e *env, name string, target schema.Target) ([]byte, error) {
	rec, err := e.schemas.Registry.Get(name)
	if err != nil {
		return nil, err
	}
	out, err := render.Render(target, name, rec)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	body, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return append(body, '\n'), nil
}

// documentNames returns the aggregate documents in sorted order.
func documentNames(e *env) []string {
	names := make([]string, 0, len(e.schemas.Catalog.Documents))
	for name := range e.schemas.Catalog.Documents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
