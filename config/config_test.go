package config_test

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/zdb/zschema/config"
	"github.com/zdb/zschema/core/annotation"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
logging:
  level: debug
  format: console

server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: 5s

annotation:
  local_keys: [manufacturer, product]
  global_keys: [manufacturer, product, os]

snapshot:
  dsn: ":memory:"

metrics:
  enabled: true
  namespace: scans
`
	cfg := writeAndLoad(t, content)

	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Server.Addr() != "127.0.0.1:9090" {
		t.Errorf("Addr() = %s, want 127.0.0.1:9090", cfg.Server.Addr())
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", cfg.Server.ReadTimeout)
	}
	if !reflect.DeepEqual(cfg.Annotation.LocalMetadataKeys(), []string{"manufacturer", "product"}) {
		t.Errorf("local keys = %v", cfg.Annotation.Local)
	}
	if cfg.Snapshot.DSN != ":memory:" {
		t.Errorf("Snapshot.DSN = %s, want :memory:", cfg.Snapshot.DSN)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Namespace != "scans" {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := writeAndLoad(t, "{}\n")

	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 8080 {
		t.Errorf("default server = %s", cfg.Server.Addr())
	}
	if cfg.Server.WriteTimeout != 60*time.Second {
		t.Errorf("default WriteTimeout = %v, want 60s", cfg.Server.WriteTimeout)
	}
	if cfg.Server.RenderCacheSize != 256 || cfg.Server.RenderCacheTTL != 10*time.Minute {
		t.Errorf("default render cache = %d, %v", cfg.Server.RenderCacheSize, cfg.Server.RenderCacheTTL)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("default Logging = %+v", cfg.Logging)
	}
	if cfg.Snapshot.DSN != "zschema.db" {
		t.Errorf("default Snapshot.DSN = %s", cfg.Snapshot.DSN)
	}
	if cfg.Metrics.Path != "/metrics" || cfg.Metrics.Namespace != "zschema" {
		t.Errorf("default Metrics = %+v", cfg.Metrics)
	}
	if !reflect.DeepEqual(cfg.Annotation, annotation.Default()) {
		t.Errorf("default Annotation = %+v", cfg.Annotation)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_SNAPSHOT_PATH", "/var/lib/zschema/snapshots.db")

	cfg := writeAndLoad(t, "snapshot:\n  dsn: ${TEST_SNAPSHOT_PATH}\n")
	if cfg.Snapshot.DSN != "/var/lib/zschema/snapshots.db" {
		t.Errorf("Snapshot.DSN = %s", cfg.Snapshot.DSN)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	catalogDir := t.TempDir()
	t.Setenv("ZSCHEMA_SERVER_PORT", "9191")
	t.Setenv("ZSCHEMA_LOG_LEVEL", "warn")
	t.Setenv("ZSCHEMA_CATALOG_DIR", catalogDir)
	t.Setenv("ZSCHEMA_CATALOG_WATCH", "yes")
	t.Setenv("ZSCHEMA_METRICS_ENABLED", "0")
	t.Setenv("ZSCHEMA_LOCAL_METADATA", "manufacturer, product ,")

	cfg := writeAndLoad(t, "server:\n  port: 9090\nmetrics:\n  enabled: true\n")

	if cfg.Server.Port != 9191 {
		t.Errorf("Port = %d, want 9191 from env", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Level = %s, want warn", cfg.Logging.Level)
	}
	if cfg.Catalog.Dir != catalogDir || !cfg.Catalog.Watch {
		t.Errorf("Catalog = %+v", cfg.Catalog)
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should be overridden to false")
	}
	if !reflect.DeepEqual(cfg.Annotation.Local, []string{"manufacturer", "product"}) {
		t.Errorf("Annotation.Local = %v", cfg.Annotation.Local)
	}
}

func TestLoad_Invalid(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad level", "logging:\n  level: loud\n", "logging.level"},
		{"bad format", "logging:\n  format: xml\n", "logging.format"},
		{"bad port", "server:\n  port: 70000\n", "server.port"},
		{"watch without dir", "catalog:\n  watch: true\n", "catalog.watch requires catalog.dir"},
		{"missing dir", "catalog:\n  dir: /nonexistent/zschema\n", "catalog.dir"},
		{"dir is a file", "catalog:\n  dir: " + file + "\n", "not a directory"},
		{"metrics path", "metrics:\n  path: metrics\n", "metrics.path"},
		{"duplicate key", "annotation:\n  local_keys: [os, os]\n", "duplicate key"},
		{"bad yaml", "server: [\n", "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := writeAndLoadErr(t, tt.content)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of a missing file should fail")
	}
}

func TestLoadWithFallback(t *testing.T) {
	t.Setenv("ZSCHEMA_SERVER_PORT", "7070")

	cfg, err := config.LoadWithFallback(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadWithFallback error: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Port = %d, want 7070", cfg.Server.Port)
	}
	if !cfg.Metrics.Enabled {
		t.Error("metrics should default to enabled without a config file")
	}
}

func writeAndLoad(t *testing.T, content string) *config.Config {
	t.Helper()
	cfg, err := writeAndLoadErr(t, content)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return cfg
}

func writeAndLoadErr(t *testing.T, content string) (*config.Config, error) {
	t.Helper()
	return config.Load(writeConfig(t, content))
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
