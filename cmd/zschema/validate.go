package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/zdb/zschema/core/schema"
)

var validateCmd = &cobra.Command{
	Use:   "validate <schema> [file...]",
	Short: "Validate scan documents against a schema",
	Long: `Validate JSON documents against a registered schema.

Each file may hold one document or a stream of documents (NDJSON). With
no files, documents are read from stdin. Every document is reported; the
command fails when any document is invalid.

Examples:
  zschema validate ipv4host host.json
  zcat scan.json.gz | zschema validate ztag_https`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

var validateQuiet bool

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVarP(&validateQuiet, "quiet", "q", false, "only report invalid documents")
}

// errInvalidDocuments is returned when at least one document failed.
var errInvalidDocuments = errors.New("invalid documents found")

func runValidate(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	name := args[0]
	rec, err := e.schemas.Registry.Get(name)
	if err != nil {
		return err
	}

	var total, invalid int
	check := func(label string, r io.Reader) {
		dec := json.NewDecoder(r)
		dec.UseNumber()
		for i := 1; ; i++ {
			var doc any
			err := dec.Decode(&doc)
			if err == io.EOF {
				return
			}
			total++

			// A decoder cannot resynchronize after malformed input, so the
			// rest of this input is skipped.
			var res schema.ValidationResult
			if err != nil {
				res = schema.ValidationResult{Schema: name, Errors: []string{"invalid JSON: " + err.Error()}}
			} else {
				res = schema.ValidateDocument(name, rec, doc)
			}
			if res.Valid {
				if !validateQuiet {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s %s#%d\n", checkMark, label, i)
				}
				continue
			}
			invalid++
			fmt.Fprintf(cmd.OutOrStdout(), "  %s %s#%d\n", crossMark, label, i)
			for _, msg := range res.Errors {
				fmt.Fprintf(cmd.OutOrStdout(), "      %s\n", msg)
			}
			if err != nil {
				return
			}
		}
	}

	files := args[1:]
	if len(files) == 0 {
		check("stdin", cmd.InOrStdin())
	}
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			total++
			invalid++
			fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\n      %v\n", crossMark, path, err)
			continue
		}
		check(path, f)
		f.Close()
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n%d documents, %d invalid\n", total, invalid)
	if invalid > 0 {
		return errInvalidDocuments
	}
	return nil
}
