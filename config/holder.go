package config

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Holder provides thread-safe access to the configuration and reloads it
// when the config file or the catalog directory changes.
//
// A reload never mutates schemas that are already being served: listeners
// receive the new configuration and build a fresh registry from it.
type Holder struct {
	mu       sync.RWMutex
	config   *Config
	path     string // empty when loaded from the environment only
	logger   zerolog.Logger
	watcher  *fsnotify.Watcher
	onChange []func(*Config)
	stopCh   chan struct{}
	stopOnce sync.Once

	// Debounce groups the burst of events an editor save produces.
	Debounce time.Duration
}

// NewHolder loads the configuration with LoadWithFallback.
func NewHolder(path string, logger zerolog.Logger) (*Holder, error) {
	cfg, err := LoadWithFallback(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	h := &Holder{
		config:   cfg,
		logger:   logger.With().Str("component", "config").Logger(),
		stopCh:   make(chan struct{}),
		Debounce: 200 * time.Millisecond,
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if h.path, err = filepath.Abs(path); err != nil {
				return nil, fmt.Errorf("absolute path: %w", err)
			}
		}
	}
	return h, nil
}

// Get returns the current configuration.
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.config
}

// Reload re-reads the configuration and notifies listeners. On error the
// old configuration is kept.
func (h *Holder) Reload() error {
	newCfg, err := LoadWithFallback(h.path)
	if err != nil {
		h.logger.Error().Err(err).Msg("config reload failed, keeping old config")
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	oldCfg := h.config
	h.config = newCfg
	listeners := append([]func(*Config){}, h.onChange...)
	h.mu.Unlock()

	h.logChanges(oldCfg, newCfg)

	for _, fn := range listeners {
		fn(newCfg)
	}
	return nil
}

// OnChange registers a callback run after every successful reload.
func (h *Holder) OnChange(fn func(*Config)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = append(h.onChange, fn)
}

// Watch starts watching the config file and, when catalog.watch is set,
// the catalog directory.
func (h *Holder) Watch() error {
	cfg := h.Get()
	var dirs []string
	if h.path != "" {
		// Watch the directory: editors replace files on save.
		dirs = append(dirs, filepath.Dir(h.path))
	}
	if cfg.Catalog.Watch {
		dir, err := filepath.Abs(cfg.Catalog.Dir)
		if err != nil {
			return fmt.Errorf("catalog dir: %w", err)
		}
		dirs = append(dirs, dir)
	}
	if len(dirs) == 0 {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	h.watcher = watcher

	go h.watchLoop()

	h.logger.Info().Strs("dirs", dirs).Msg("watching for configuration changes")
	return nil
}

// WatchSignals reloads on SIGHUP.
func (h *Holder) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-sigCh:
				h.logger.Info().Msg("received SIGHUP, reloading")
				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("SIGHUP reload failed")
				}
			case <-h.stopCh:
				signal.Stop(sigCh)
				return
			}
		}
	}()
}

// Stop stops watching for file changes and signals.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		if h.watcher != nil {
			h.watcher.Close()
		}
	})
}

// relevant reports whether a change to name should trigger a reload.
func (h *Holder) relevant(name string) bool {
	if h.path != "" && filepath.Clean(name) == h.path {
		return true
	}
	cfg := h.Get()
	if !cfg.Catalog.Watch {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

func (h *Holder) watchLoop() {
	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 || !h.relevant(event.Name) {
				continue
			}
			h.logger.Debug().
				Str("event", event.Op.String()).
				Str("file", event.Name).
				Msg("watched file changed")

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(h.Debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			if err := h.Reload(); err != nil {
				h.logger.Error().Err(err).Msg("file watch reload failed")
			}

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("file watcher error")

		case <-h.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (h *Holder) logChanges(old, new *Config) {
	if old.Logging.Level != new.Logging.Level {
		h.logger.Info().
			Str("old", old.Logging.Level).
			Str("new", new.Logging.Level).
			Msg("log level changed")
	}
	if old.Catalog.Dir != new.Catalog.Dir {
		h.logger.Info().
			Str("old", old.Catalog.Dir).
			Str("new", new.Catalog.Dir).
			Msg("catalog directory changed")
	}
	for _, f := range NonReloadableFields() {
		if changed(old, new, f) {
			h.logger.Warn().Str("field", f).Msg("change requires a restart")
		}
	}
}

// NonReloadableFields returns which fields require a restart.
func NonReloadableFields() []string {
	return []string{
		"server.host",
		"server.port",
		"snapshot.dsn",
		"metrics.namespace",
	}
}

func changed(old, new *Config, field string) bool {
	switch field {
	case "server.host":
		return old.Server.Host != new.Server.Host
	case "server.port":
		return old.Server.Port != new.Server.Port
	case "snapshot.dsn":
		return old.Snapshot.DSN != new.Snapshot.DSN
	case "metrics.namespace":
		return old.Metrics.Namespace != new.Metrics.Namespace
	}
	return false
}
