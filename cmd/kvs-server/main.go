// Command kvs-server starts a toycask key-value server: it loads
// configuration, opens the storage engine, and serves the wire protocol
// on a TCP listener until the process is killed.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/jassi-singh/toycask/internal/config"
	"github.com/jassi-singh/toycask/internal/engine"
	"github.com/jassi-singh/toycask/internal/enginesel"
	"github.com/jassi-singh/toycask/internal/server"
	"github.com/jassi-singh/toycask/internal/threadpool"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	var (
		addrFlag   = flag.String("addr", "", "listen address, overrides config")
		engineFlag = flag.String("engine", "", "engine name (kvs), overrides config")
		configPath = flag.String("config", defaultConfigPath(), "path to config.yml")
	)
	flag.Parse()

	slog.Info("main: loading configuration", "path", *configPath)
	watcher, err := config.NewWatcher(*configPath)
	if err != nil {
		slog.Error("main: failed to load configuration", "error", err)
		log.Fatalf("failed to load config: %v", err)
	}
	defer watcher.Close()
	cfg := watcher.Current()

	addr := cfg.ListenAddr
	if *addrFlag != "" {
		addr = *addrFlag
	}
	requestedEngine := cfg.Engine
	if *engineFlag != "" {
		requestedEngine = *engineFlag
	}

	slog.Info("main: configuration loaded",
		"data_dir", cfg.DataDir,
		"listen_addr", addr,
		"engine", requestedEngine,
		"pool_kind", cfg.PoolKind,
		"pool_size", cfg.PoolSize,
		"compaction_threshold_bytes", cfg.CompactionThresholdBytes(),
	)

	resolvedEngine, err := enginesel.Resolve(cfg.DataDir, requestedEngine)
	if err != nil {
		slog.Error("main: engine selection failed", "error", err)
		log.Fatalf("engine selection failed: %v", err)
	}
	if err := enginesel.CheckAvailable(resolvedEngine); err != nil {
		slog.Error("main: engine unavailable", "engine", resolvedEngine, "error", err)
		log.Fatalf("engine %q unavailable: %v", resolvedEngine, err)
	}

	kv, err := engine.Open(cfg.DataDir, cfg.CompactionThresholdBytes())
	if err != nil {
		slog.Error("main: failed to open storage engine", "error", err)
		log.Fatalf("failed to open engine: %v", err)
	}
	defer func() {
		if err := kv.Shutdown(); err != nil {
			slog.Error("main: error shutting down engine", "error", err)
		}
	}()

	pool, err := threadpool.New(threadpool.Kind(cfg.PoolKind), cfg.PoolSize)
	if err != nil {
		slog.Error("main: failed to create thread pool", "error", err)
		log.Fatalf("failed to create thread pool: %v", err)
	}
	defer pool.Release()

	slog.Info("main: toycask server starting", "addr", addr)

	srv := server.New(kv, pool)
	if err := srv.Run(addr); err != nil {
		slog.Error("main: server exited with error", "error", err)
		log.Fatalf("server error: %v", err)
	}
}

func defaultConfigPath() string {
	if p := os.Getenv("TOYCASK_CONFIG"); p != "" {
		return p
	}
	return "./config.yml"
}
