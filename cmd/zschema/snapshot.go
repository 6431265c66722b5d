package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zdb/zschema/bootstrap"
	"github.com/zdb/zschema/core/schema"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [schema...]",
	Short: "Record rendered exports in the snapshot store",
	Long: `Render schemas for every target and store the result. An export
identical to the latest snapshot of the same schema and target is not
stored again.

With no schema named, every aggregate document is recorded.

Examples:
  zschema snapshot
  zschema snapshot ipv4host --target bq`,
	RunE: runSnapshot,
}

var snapshotTargets []string

func init() {
	rootCmd.AddCommand(snapshotCmd)

	snapshotCmd.Flags().StringSliceVarP(&snapshotTargets, "target", "t", nil, "targets to record (default all)")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	targets, err := parseTargets(snapshotTargets)
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

	names := args
	if len(names) == 0 {
		names = documentNames(e)
	}

	out := cmd.OutOrStdout()
	for _, name := range names {
		for _, target := range targets {
			body, err := renderJSON(e, name, target)
			if err != nil {
				return err
			}
			snap, created, err := store.Save(cmd.Context(), name, target.String(), body)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(out, "  %s %s/%s stored as %s\n", checkMark, name, target, snap.ID)
			} else {
				fmt.Fprintf(out, "  %s %s/%s unchanged (%s)\n", checkMark, name, target, snap.ID)
			}
		}
	}
	return nil
}

func parseTargets(raw []string) ([]schema.Target, error) {
	if len(raw) == 0 {
		return schema.Targets(), nil
	}
	targets := make([]schema.Target, 0, len(raw))
	for _, s := range raw {
		t, err := schema.ParseTarget(s)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}
