// Package config provides layered configuration for the toycask server and
// client: a YAML file (with ${VAR} expansion), an optional sibling .env
// file, and a lightweight watcher that reloads the file in place when it
// changes on disk.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	units "github.com/docker/go-units"
	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// DefaultAddr is the listening/dial address used when neither the config
// file nor a flag overrides it.
const DefaultAddr = "127.0.0.1:4000"

// DefaultCompactionThreshold is the dead-bytes watermark (in bytes) that
// triggers a compaction, per spec default of 1 MiB.
const DefaultCompactionThreshold = 1024 * 1024

// Config holds the values the engine, server, and client all read from.
type Config struct {
	DataDir             string `yaml:"data_dir"`
	CompactionThreshold string `yaml:"compaction_threshold"` // human-readable, e.g. "1MiB"
	ListenAddr          string `yaml:"listen_addr"`
	Engine              string `yaml:"engine"`
	PoolKind            string `yaml:"pool_kind"` // naive | shared_queue | ants
	PoolSize            int    `yaml:"pool_size"`

	// compactionThresholdBytes is the parsed byte value of
	// CompactionThreshold, resolved once at Load time so hot callers
	// never re-parse it.
	compactionThresholdBytes int64
}

// CompactionThresholdBytes returns the resolved byte threshold.
func (c *Config) CompactionThresholdBytes() int64 {
	if c.compactionThresholdBytes > 0 {
		return c.compactionThresholdBytes
	}
	return DefaultCompactionThreshold
}

func defaults() *Config {
	return &Config{
		DataDir:    "./data",
		ListenAddr: DefaultAddr,
		Engine:     "kvs",
		PoolKind:   "shared_queue",
		PoolSize:   4,
	}
}

// Load reads the config file at path (falling back to defaults for any
// field the file omits, and to DefaultAddr/DefaultCompactionThreshold for
// empty fields). A sibling .env is loaded first, if present, so ${VAR}
// expansion inside the YAML can see it. Load never fails because the file
// is missing — an absent config file just yields defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		slog.Debug("config: no .env file found or failed to load it", "error", err)
	}

	cfg := defaults()

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Debug("config: no config file found, using defaults", "path", path)
			return finalize(cfg)
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return finalize(cfg)
}

func finalize(cfg *Config) (*Config, error) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultAddr
	}
	if cfg.Engine == "" {
		cfg.Engine = "kvs"
	}
	if cfg.PoolKind == "" {
		cfg.PoolKind = "shared_queue"
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 4
	}
	if cfg.CompactionThreshold == "" {
		cfg.compactionThresholdBytes = DefaultCompactionThreshold
		return cfg, nil
	}
	n, err := units.RAMInBytes(cfg.CompactionThreshold)
	if err != nil {
		return nil, fmt.Errorf("config: invalid compaction_threshold %q: %w", cfg.CompactionThreshold, err)
	}
	cfg.compactionThresholdBytes = n
	return cfg, nil
}

// Watcher reloads a Config from disk whenever its backing file changes,
// and exposes the latest value via Current. cmd/kvs-server reads Current()
// once at startup, so a later reload does not change a running server.
type Watcher struct {
	path    string
	current atomic.Pointer[Config]
	watcher *fsnotify.Watcher
	mu      sync.Mutex
	closed  bool
}

// NewWatcher loads path once and starts watching it for writes. If the
// file does not exist yet, or fsnotify can't watch it (e.g. no inotify
// support), the watcher still works in "load once, never reload" mode —
// reload failures are logged, not fatal, since serving with stale config
// beats crashing the server.
func NewWatcher(path string) (*Watcher, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{path: path}
	w.current.Store(cfg)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("config: could not start file watcher, config will not hot-reload", "error", err)
		return w, nil
	}
	if err := fw.Add(path); err != nil {
		slog.Debug("config: config file does not exist yet, not watching", "path", path, "error", err)
		fw.Close()
		return w, nil
	}
	w.watcher = fw
	go w.loop()
	return w, nil
}

// Current returns the most recently loaded configuration.
func (w *Watcher) Current() *Config {
	return w.current.Load()
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				slog.Error("config: reload failed, keeping previous config", "error", err)
				continue
			}
			w.current.Store(cfg)
			slog.Info("config: reloaded", "path", w.path)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("config: watcher error", "error", err)
		}
	}
}

// Close stops the background watch goroutine, if one was started.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.watcher == nil {
		w.closed = true
		return nil
	}
	w.closed = true
	return w.watcher.Close()
}
