// Package bootstrap wires configuration, logging, the schema catalog, the
// snapshot store and the HTTP query API.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	apihttp "github.com/zdb/zschema/adapters/http"
	"github.com/zdb/zschema/catalog"
	"github.com/zdb/zschema/config"
	"github.com/zdb/zschema/core/exporter"
	"github.com/zdb/zschema/core/registry"
	"github.com/zdb/zschema/core/storage"
)

// Version is set at build time.
var Version = "dev"

// NewLogger builds the process logger from the logging section.
func NewLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Schemas is a loaded, fully built and finalized schema set.
type Schemas struct {
	Registry *registry.Registry
	Catalog  *catalog.Catalog
}

// LoadSchemas loads the catalog named by cfg into a new registry. Lazily
// declared documents are built before the registry is finalized, so any
// declaration error surfaces here rather than on first use.
func LoadSchemas(cfg *config.Config, logger zerolog.Logger) (*Schemas, error) {
	opts := catalog.Options{Keys: cfg.Annotation, Logger: logger}
	if cfg.Catalog.Dir != "" {
		opts.FS = os.DirFS(cfg.Catalog.Dir)
	}

	reg := registry.New()
	cat, err := catalog.Load(reg, opts)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if _, err := reg.All(); err != nil {
		return nil, fmt.Errorf("build schemas: %w", err)
	}
	reg.Finalize()

	return &Schemas{Registry: reg, Catalog: cat}, nil
}

// OpenStore opens the snapshot store named by cfg.
func OpenStore(cfg *config.Config, logger zerolog.Logger) (*storage.SQLiteStore, error) {
	store, err := storage.NewSQLiteStore(cfg.Snapshot.DSN, logger)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	return store, nil
}

// App is the running query service.
type App struct {
	Logger     zerolog.Logger
	Holder     *config.Holder
	Metrics    *exporter.Metrics
	Handler    *apihttp.Handler
	HTTPServer *http.Server

	schemas atomic.Pointer[Schemas]
}

// New loads the configuration at path (or from the environment) and
// prepares the service. Metrics survive catalog reloads.
func New(path string) (*App, error) {
	boot, err := config.LoadWithFallback(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := NewLogger(boot.Logging, os.Stdout)
	logger.Info().Str("version", Version).Msg("initializing zschema")

	holder, err := config.NewHolder(path, logger)
	if err != nil {
		return nil, err
	}
	cfg := holder.Get()

	a := &App{Logger: logger, Holder: holder}

	if cfg.Metrics.Enabled {
		a.Metrics = exporter.New(exporter.Config{Namespace: cfg.Metrics.Namespace, Runtime: cfg.Metrics.Runtime})
		logger.Info().Str("path", cfg.Metrics.Path).Msg("prometheus metrics enabled")
	}

	s, err := LoadSchemas(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.setSchemas(s)

	a.Handler = apihttp.NewHandler(apihttp.Deps{
		Source:         s.Registry,
		Metrics:        a.Metrics,
		Logger:         logger,
		MetricsPath:    cfg.Metrics.Path,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		RequestTimeout: cfg.Server.RequestTimeout,
		CacheSize:      cfg.Server.RenderCacheSize,
		CacheTTL:       cfg.Server.RenderCacheTTL,
		Version:        Version,
	})
	a.HTTPServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      a.Handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	holder.OnChange(a.reload)
	return a, nil
}

// Schemas returns the schema set currently being served.
func (a *App) Schemas() *Schemas {
	return a.schemas.Load()
}

func (a *App) setSchemas(s *Schemas) {
	a.schemas.Store(s)
	if a.Metrics != nil {
		a.Metrics.SchemasRegistered.Set(float64(s.Registry.Len()))
	}
	a.Logger.Info().
		Int("schemas", s.Registry.Len()).
		Int("redefinitions", len(s.Catalog.Redefinitions)).
		Msg("schemas loaded")
}

// reload builds a new schema set and swaps it in. A failed load keeps the
// current set.
func (a *App) reload(cfg *config.Config) {
	s, err := LoadSchemas(cfg, a.Logger)
	if err != nil {
		a.Logger.Error().Err(err).Msg("catalog reload failed, keeping current schemas")
		return
	}
	a.setSchemas(s)
	a.Handler.SetSource(s.Registry)
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run() error {
	if err := a.Holder.Watch(); err != nil {
		a.Logger.Warn().Err(err).Msg("configuration watch disabled")
	}
	a.Holder.WatchSignals()

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a.Holder.Stop()

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
			return err
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}
