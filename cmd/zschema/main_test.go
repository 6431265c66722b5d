package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/zdb/zschema/core/render"
	"github.com/zdb/zschema/core/schema"
)

// resetFlags restores every flag to its default; rootCmd is shared by all
// tests in the package.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sv.Replace(nil)
		} else {
			f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "zschema.yaml")
	content := `
logging:
  level: disabled
snapshot:
  dsn: ` + filepath.Join(dir, "snapshots.db") + `
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func run(t *testing.T, cfg, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--config", cfg}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestList(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, cfg, "", "list", "-o", "json")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	var listing struct {
		Count   int              `json:"count"`
		Schemas []schema.Summary `json:"schemas"`
	}
	if err := json.Unmarshal([]byte(out), &listing); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if listing.Count != len(listing.Schemas) {
		t.Errorf("count = %d, schemas = %d", listing.Count, len(listing.Schemas))
	}
	found := map[string]bool{}
	for _, s := range listing.Schemas {
		found[s.Name] = true
	}
	for _, want := range []string{"ipv4host", "certificate", "website", "ztag_https"} {
		if !found[want] {
			t.Errorf("list is missing %s", want)
		}
	}

	if _, err := run(t, cfg, "", "list", "-o", "xml"); err == nil {
		t.Error("list -o xml succeeded, want unknown format error")
	}
}

func TestShow(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, cfg, "", "show", "ztag_https", "-o", "json")
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	var desc schema.FieldSchema
	if err := json.Unmarshal([]byte(out), &desc); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if desc.Name != "ztag_https" || desc.Extends != "ztag_tls_result" {
		t.Errorf("show = %s extends %q", desc.Name, desc.Extends)
	}

	if _, err := run(t, cfg, "", "show", "nope"); err == nil {
		t.Error("show of an unknown schema succeeded")
	}
}

func TestRender(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, cfg, "", "render", "ipv4host", "-t", "bq")
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	var cols []render.BQField
	if err := json.Unmarshal([]byte(out), &cols); err != nil {
		t.Fatalf("decode: %v", err)
	}
	names := map[string]bool{}
	for _, c := range cols {
		names[c.Name] = true
	}
	if !names["p443"] || !names["ip"] {
		t.Errorf("bigquery columns missing p443 or ip: %v", names)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"unknown target", []string{"render", "ipv4host", "-t", "solr"}},
		{"no schema", []string{"render"}},
		{"unknown schema", []string{"render", "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, cfg, "", tt.args...); err == nil {
				t.Errorf("%v succeeded, want error", tt.args)
			}
		})
	}
}

func TestRenderOutDir(t *testing.T) {
	cfg := writeConfig(t)
	dir := filepath.Join(t.TempDir(), "exports")

	if _, err := run(t, cfg, "", "render", "--out", dir, "-t", "es"); err != nil {
		t.Fatalf("render --out failed: %v", err)
	}
	for _, doc := range []string{"certificate", "ipv4host", "website"} {
		if _, err := os.Stat(filepath.Join(dir, doc+".elasticsearch.json")); err != nil {
			t.Errorf("missing export for %s: %v", doc, err)
		}
	}
}

func TestValidate(t *testing.T) {
	cfg := writeConfig(t)
	dir := t.TempDir()

	good := filepath.Join(dir, "good.json")
	os.WriteFile(good, []byte(`{"ip": "192.0.2.1", "ipint": 3221225985}`+"\n"+`{"ip": "192.0.2.2", "ipint": 3221225986, "tags": ["scanned"]}`), 0o644)
	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte(`{"ip": "not-an-ip"}`), 0o644)

	out, err := run(t, cfg, "", "validate", "ipv4host", good)
	if err != nil {
		t.Fatalf("validate good failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "2 documents, 0 invalid") {
		t.Errorf("output = %s", out)
	}

	out, err = run(t, cfg, "", "validate", "ipv4host", good, bad)
	if !errors.Is(err, errInvalidDocuments) {
		t.Fatalf("err = %v, want errInvalidDocuments", err)
	}
	if !strings.Contains(out, "3 documents, 1 invalid") || !strings.Contains(out, bad+"#1") {
		t.Errorf("output = %s", out)
	}

	out, err = run(t, cfg, `{"tags": []}`, "validate", "ipv4host", "-q")
	if !errors.Is(err, errInvalidDocuments) {
		t.Fatalf("stdin err = %v, want errInvalidDocuments", err)
	}
	if !strings.Contains(out, "stdin#1") {
		t.Errorf("stdin output = %s", out)
	}

	truncated := filepath.Join(dir, "truncated.json")
	os.WriteFile(truncated, []byte(`{"ip": "192.0.2.1", "ipint": 3221225985}`+"\n"+`{"ip":`), 0o644)
	out, err = run(t, cfg, "", "validate", "ipv4host", truncated, good)
	if !errors.Is(err, errInvalidDocuments) {
		t.Fatalf("truncated err = %v, want errInvalidDocuments", err)
	}
	for _, want := range []string{truncated + "#2", good + "#2", "4 documents, 1 invalid"} {
		if !strings.Contains(out, want) {
			t.Errorf("truncated output missing %q:\n%s", want, out)
		}
	}
}

func TestSnapshotAndDiff(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, cfg, "", "diff", "ipv4host", "-t", "bq")
	if err == nil || !strings.Contains(err.Error(), "no snapshot") {
		t.Fatalf("diff before snapshot err = %v", err)
	}

	out, err = run(t, cfg, "", "snapshot", "ipv4host", "-t", "bq")
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if !strings.Contains(out, "ipv4host/bigquery stored as") {
		t.Errorf("first snapshot output = %s", out)
	}

	out, err = run(t, cfg, "", "snapshot", "ipv4host", "-t", "bq")
	if err != nil {
		t.Fatalf("second snapshot failed: %v", err)
	}
	if !strings.Contains(out, "unchanged") {
		t.Errorf("second snapshot output = %s", out)
	}

	out, err = run(t, cfg, "", "diff", "ipv4host", "-t", "bq")
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}
	if !strings.Contains(out, "matches snapshot") {
		t.Errorf("diff output = %s", out)
	}
}

func TestCheck(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, cfg, "", "check", "--check-store")
	if err != nil {
		t.Fatalf("check failed: %v\n%s", err, out)
	}
	for _, want := range []string{"Config valid", "Catalog loads (embedded)", "certificate_policy declared more than once", "Snapshot store"} {
		if !strings.Contains(out, want) {
			t.Errorf("check output missing %q:\n%s", want, out)
		}
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, writeConfig(t), "", "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, "zschema dev") {
		t.Errorf("version output = %s", out)
	}
}
