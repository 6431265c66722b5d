package bootstrap_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/zdb/zschema/bootstrap"
	"github.com/zdb/zschema/config"
)

const smallCatalog = `records:
  - name: banner_result
    fields:
      banner: String
`

func writeCatalog(t *testing.T, dir, records string) {
	t.Helper()
	files := map[string]string{
		"aliases.yaml":   "aliases: {}\n",
		"lints.yaml":     "rules: [e_a]\n",
		"records.yaml":   records,
		"documents.yaml": "documents:\n  - name: host\n    bindings:\n      - {port: 21, protocol: ftp, schema: banner_result}\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := bootstrap.NewLogger(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"message":"shown"`) {
		t.Errorf("log output = %q", out)
	}
	if !strings.Contains(out, `"time":`) {
		t.Error("log lines should carry a timestamp")
	}
}

func TestLoadSchemasEmbedded(t *testing.T) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	s, err := bootstrap.LoadSchemas(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("LoadSchemas: %v", err)
	}
	if !s.Registry.Finalized() {
		t.Error("registry should be finalized")
	}
	for _, name := range []string{"ipv4host", "website", "certificate"} {
		if _, err := s.Registry.Get(name); err != nil {
			t.Errorf("Get(%s): %v", name, err)
		}
	}
}

func TestLoadSchemasCustomKeys(t *testing.T) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	cfg.Annotation.Local = []string{"vendor"}

	s, err := bootstrap.LoadSchemas(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("LoadSchemas: %v", err)
	}
	local, err := s.Registry.Get("local_metadata")
	if err != nil {
		t.Fatalf("Get(local_metadata): %v", err)
	}
	if names := local.Names(); len(names) != 1 || names[0] != "vendor" {
		t.Errorf("local_metadata fields = %v, want [vendor]", names)
	}
}

func TestAppReloadSwapsSchemas(t *testing.T) {
	catalogDir := t.TempDir()
	writeCatalog(t, catalogDir, smallCatalog)
	path := writeConfig(t, `
logging:
  level: disabled
catalog:
  dir: `+catalogDir+`
snapshot:
  dsn: ":memory:"
metrics:
  enabled: true
`)

	app, err := bootstrap.New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer app.Holder.Stop()

	srv := httptest.NewServer(app.HTTPServer.Handler)
	defer srv.Close()

	if resp, err := http.Get(srv.URL + "/schemas/host"); err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /schemas/host = %v, %v", resp, err)
	}

	writeCatalog(t, catalogDir, smallCatalog+"  - name: ssh_result\n    fields:\n      version: String\n")
	if err := app.Holder.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if !app.Schemas().Registry.Has("ssh_result") {
		t.Error("reload did not pick up ssh_result")
	}
	resp, err := http.Get(srv.URL + "/schemas/ssh_result")
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Errorf("GET /schemas/ssh_result after reload = %v, %v", resp, err)
	}

	// A broken catalog keeps the served schemas.
	writeCatalog(t, catalogDir, "records:\n  - name: x\n    extends: missing\n")
	if err := app.Holder.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if !app.Schemas().Registry.Has("ssh_result") {
		t.Error("failed reload replaced the schemas")
	}

	if err := app.Shutdown(); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestOpenStore(t *testing.T) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	cfg.Snapshot.DSN = filepath.Join(t.TempDir(), "snapshots.db")

	store, err := bootstrap.OpenStore(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()

	if _, _, err := store.Save(context.Background(), "host", "bigquery", []byte(`[]`)); err != nil {
		t.Errorf("Save: %v", err)
	}
}
