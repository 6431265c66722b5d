package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zdb/zschema/bootstrap"
	"github.com/zdb/zschema/core/schema"
	"github.com/zdb/zschema/core/storage"
)

var diffCmd = &cobra.Command{
	Use:   "diff <schema>",
	Short: "Compare the current export of a schema with a snapshot",
	Long: `Compare the export rendered from the current catalog with the latest
stored snapshot, or compare two stored snapshots by id.

Examples:
  zschema diff ipv4host --target bq
  zschema diff ipv4host --from <id> --to <id>`,
	Args: cobra.ExactArgs(1),
	RunE: runDiff,
}

var (
	diffTarget string
	diffFrom   string
	diffTo     string
)

func init() {
	rootCmd.AddCommand(diffCmd)

	diffCmd.Flags().StringVarP(&diffTarget, "target", "t", "bigquery", "export target")
	diffCmd.Flags().StringVar(&diffFrom, "from", "", "snapshot id to compare from (default latest)")
	diffCmd.Flags().StringVar(&diffTo, "to", "", "snapshot id to compare to (default current catalog)")
}

func runDiff(cmd *cobra.Command, args []string) error {
	target, err := schema.ParseTarget(diffTarget)
	if err != nil {
		return err
	}
	f, err := outputFormatter()
	if err != nil {
		return err
	}
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	store, err := bootstrap.OpenStore(e.cfg, e.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	name := args[0]

	var from storage.Snapshot
	if diffFrom != "" {
		from, err = store.Get(ctx, diffFrom)
	} else {
		from, err = store.Latest(ctx, name, target.String())
	}
	if errors.Is(err, storage.ErrNoSnapshot) {
		return fmt.Errorf("%s/%s: no snapshot to compare with, run zschema snapshot first", name, target)
	}
	if err != nil {
		return err
	}

	var body []byte
	if diffTo != "" {
		to, err := store.Get(ctx, diffTo)
		if err != nil {
			return err
		}
		body = to.Body
	} else {
		if body, err = renderJSON(e, name, target); err != nil {
			return err
		}
	}

	d, err := storage.Compare(from.Body, body)
	if err != nil {
		return err
	}
	if d.Empty() {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s %s/%s matches snapshot %s\n", checkMark, name, target, from.ID)
		return nil
	}
	return f.FormatValue(cmd.OutOrStdout(), d)
}
