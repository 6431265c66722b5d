// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/zdb/zschema/core/annotation"
)

// Config is the root configuration structure.
type Config struct {
	Logging    LoggingConfig     `yaml:"logging"`
	Server     ServerConfig      `yaml:"server"`
	Annotation annotation.Static `yaml:"annotation"`
	Catalog    CatalogConfig     `yaml:"catalog"`
	Snapshot   SnapshotConfig    `yaml:"snapshot"`
	Metrics    MetricsConfig     `yaml:"metrics"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// ServerConfig configures the HTTP query API.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"` // limit for validate requests

	// Rendered exports are cached per schema and target until the catalog
	// is reloaded or the entry expires. A negative size disables the cache.
	RenderCacheSize int           `yaml:"render_cache_size"`
	RenderCacheTTL  time.Duration `yaml:"render_cache_ttl"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CatalogConfig selects the schema declarations.
type CatalogConfig struct {
	// Dir overrides the embedded declarations with aliases.yaml, lints.yaml,
	// records.yaml and documents.yaml from a directory.
	Dir string `yaml:"dir"`

	// Watch reloads the catalog when files in Dir change (serve only).
	Watch bool `yaml:"watch"`
}

// SnapshotConfig configures the export snapshot store.
type SnapshotConfig struct {
	DSN string `yaml:"dsn"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path"` // default: /metrics
	Namespace string `yaml:"namespace"`
	Runtime   bool   `yaml:"runtime"` // also export Go runtime and process collectors
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// LoadFromEnv creates configuration from defaults and environment
// variables only.
//
// Environment variables:
//
//	ZSCHEMA_LOG_LEVEL         - debug, info, warn, error (default: info)
//	ZSCHEMA_LOG_FORMAT        - json or console (default: json)
//	ZSCHEMA_SERVER_HOST       - listen host (default: 0.0.0.0)
//	ZSCHEMA_SERVER_PORT       - listen port (default: 8080)
//	ZSCHEMA_CATALOG_DIR       - schema declarations directory (default: embedded)
//	ZSCHEMA_CATALOG_WATCH     - reload on catalog changes (default: false)
//	ZSCHEMA_SNAPSHOT_DSN      - snapshot database (default: zschema.db)
//	ZSCHEMA_METRICS_ENABLED   - expose /metrics (default: true)
//	ZSCHEMA_LOCAL_METADATA    - comma-separated local metadata keys
//	ZSCHEMA_GLOBAL_METADATA   - comma-separated global metadata keys
func LoadFromEnv() (*Config, error) {
	cfg := Config{Metrics: MetricsConfig{Enabled: true}}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// LoadWithFallback loads path when it exists, and falls back to
// LoadFromEnv otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies ZSCHEMA_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ZSCHEMA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ZSCHEMA_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("ZSCHEMA_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("ZSCHEMA_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ZSCHEMA_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("ZSCHEMA_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	if v := os.Getenv("ZSCHEMA_CATALOG_DIR"); v != "" {
		cfg.Catalog.Dir = v
	}
	if v := os.Getenv("ZSCHEMA_CATALOG_WATCH"); v != "" {
		cfg.Catalog.Watch = parseBool(v)
	}

	if v := os.Getenv("ZSCHEMA_SNAPSHOT_DSN"); v != "" {
		cfg.Snapshot.DSN = v
	}

	if v := os.Getenv("ZSCHEMA_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("ZSCHEMA_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}

	if v := os.Getenv("ZSCHEMA_LOCAL_METADATA"); v != "" {
		cfg.Annotation.Local = splitList(v)
	}
	if v := os.Getenv("ZSCHEMA_GLOBAL_METADATA"); v != "" {
		cfg.Annotation.Global = splitList(v)
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func setDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 30 * time.Second
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 8 << 20
	}
	if cfg.Server.RenderCacheSize == 0 {
		cfg.Server.RenderCacheSize = 256
	}
	if cfg.Server.RenderCacheTTL == 0 {
		cfg.Server.RenderCacheTTL = 10 * time.Minute
	}

	// Missing key lists fall back to the standard metadata keys.
	def := annotation.Default()
	if len(cfg.Annotation.Local) == 0 {
		cfg.Annotation.Local = def.Local
	}
	if len(cfg.Annotation.Global) == 0 {
		cfg.Annotation.Global = def.Global
	}

	if cfg.Snapshot.DSN == "" {
		cfg.Snapshot.DSN = "zschema.db"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "zschema"
	}
}

func validate(cfg *Config) error {
	if _, err := zerolog.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	if cfg.Catalog.Watch && cfg.Catalog.Dir == "" {
		return fmt.Errorf("catalog.watch requires catalog.dir")
	}
	if cfg.Catalog.Dir != "" {
		info, err := os.Stat(cfg.Catalog.Dir)
		if err != nil {
			return fmt.Errorf("catalog.dir: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("catalog.dir %s is not a directory", cfg.Catalog.Dir)
		}
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
	}

	if err := checkKeys("annotation.local_keys", cfg.Annotation.Local); err != nil {
		return err
	}
	return checkKeys("annotation.global_keys", cfg.Annotation.Global)
}

func checkKeys(section string, keys []string) error {
	seen := make(map[string]bool, len(keys))
	for i, k := range keys {
		if k == "" {
			return fmt.Errorf("%s[%d] is empty", section, i)
		}
		if seen[k] {
			return fmt.Errorf("%s: duplicate key %q", section, k)
		}
		seen[k] = true
	}
	return nil
}
