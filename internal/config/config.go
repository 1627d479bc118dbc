// Package config loads pgshimd's YAML configuration and supports hot-reload
// via fsnotify, the way the teacher pack's db-bouncer configuration layer
// does for its own tenant config.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Config is pgshimd's top-level configuration.
type Config struct {
	Listen   ListenConfig          `yaml:"listen"`
	Auth     AuthConfig            `yaml:"auth"`
	Database string                `yaml:"database"`
	Tables   map[string]TableSpec  `yaml:"tables"`
}

// ListenConfig controls the TCP address pgshimd binds to, and its metrics
// sidecar.
type ListenConfig struct {
	Address       string        `yaml:"address"`
	MetricsBind   string        `yaml:"metrics_bind"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`
}

// AuthConfig is a static username->password credential table, the shape
// StaticProvider consumes directly.
type AuthConfig struct {
	Credentials map[string]string `yaml:"credentials"`
}

// TableSpec describes one table of the in-memory demo catalog.
type TableSpec struct {
	Columns []ColumnSpec `yaml:"columns"`
	Rows    [][]any      `yaml:"rows"`
}

// ColumnSpec names one column and its logical type, by the same names
// compile/types.DataType.String() produces.
type ColumnSpec struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func substituteEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envVarPattern.FindSubmatch(match)[1]
		if val, ok := os.LookupEnv(string(name)); ok {
			return []byte(val)
		}
		return match
	})
}

// Load reads and parses a YAML config file, substituting ${VAR} references
// against the process environment before unmarshaling.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	data = substituteEnvVars(data)

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Listen.Address == "" {
		cfg.Listen.Address = "0.0.0.0:5432"
	}
	if cfg.Listen.MetricsBind == "" {
		cfg.Listen.MetricsBind = "127.0.0.1:9090"
	}
	if cfg.Listen.ReadTimeout == 0 {
		cfg.Listen.ReadTimeout = 30 * time.Second
	}
	if cfg.Listen.ShutdownGrace == 0 {
		cfg.Listen.ShutdownGrace = 5 * time.Second
	}
	if cfg.Database == "" {
		cfg.Database = "db"
	}
}

func validate(cfg *Config) error {
	for name, spec := range cfg.Tables {
		if len(spec.Columns) == 0 {
			return fmt.Errorf("table %q: at least one column is required", name)
		}
		for _, row := range spec.Rows {
			if len(row) != len(spec.Columns) {
				return fmt.Errorf("table %q: row has %d values but %d columns are declared", name, len(row), len(spec.Columns))
			}
		}
	}
	return nil
}

// Watcher watches the config file for changes and invokes callback with each
// successfully reloaded Config. A reload that fails to parse or validate is
// logged and skipped; the previous configuration stays in effect.
type Watcher struct {
	path     string
	callback func(*Config)
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	mu       sync.Mutex
	stopCh   chan struct{}
}

// NewWatcher starts watching path for writes, debouncing bursts of events
// (editors often emit several in quick succession for one save). A nil
// logger falls back to slog.Default(), matching shim.NewConn's convention.
func NewWatcher(path string, callback func(*Config), logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	if err := w.Add(path); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching config file: %w", err)
	}

	cw := &Watcher{path: path, callback: callback, watcher: w, logger: logger, stopCh: make(chan struct{})}
	go cw.run()
	return cw, nil
}

func (cw *Watcher) run() {
	var debounce *time.Timer
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(300*time.Millisecond, cw.reload)
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Error("config watcher error", slog.String("err", err.Error()))
		case <-cw.stopCh:
			return
		}
	}
}

func (cw *Watcher) reload() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cfg, err := Load(cw.path)
	if err != nil {
		cw.logger.Error("config hot-reload failed", slog.String("err", err.Error()))
		return
	}

	cw.logger.Info("configuration reloaded", slog.String("path", cw.path))
	cw.callback(cfg)
}

// Stop shuts the watcher down, releasing its fsnotify handle.
func (cw *Watcher) Stop() error {
	close(cw.stopCh)
	return cw.watcher.Close()
}
