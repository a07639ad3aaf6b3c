package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/cedrickchee/bitcask/internal/badgerengine"
	"github.com/cedrickchee/bitcask/internal/config"
	"github.com/cedrickchee/bitcask/internal/engine"
	"github.com/cedrickchee/bitcask/internal/infra/buildinfo"
	"github.com/cedrickchee/bitcask/internal/infra/shutdown"
	"github.com/cedrickchee/bitcask/internal/kvs"
	"github.com/cedrickchee/bitcask/internal/server"
	"github.com/cedrickchee/bitcask/internal/telemetry/metrics"
	"github.com/cedrickchee/bitcask/internal/threadpool"
)

func main() {
	app := &cli.App{
		Name:    "kvs-server",
		Usage:   "serve a key-value store over TCP",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.BuildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Required: true, Usage: "data directory", EnvVars: []string{"KVS_DIR"}},
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "optional YAML config file, overlaid under flags and env"},
			&cli.StringFlag{Name: "addr", Usage: "TCP address to bind", EnvVars: []string{"KVS_ADDR"}},
			&cli.StringFlag{Name: "engine", Usage: "storage engine: kvs or sled", EnvVars: []string{"KVS_ENGINE"}},
			&cli.IntFlag{Name: "threads", Usage: "thread pool worker count", EnvVars: []string{"KVS_THREADS"}},
			&cli.Int64Flag{Name: "compaction-threshold", Usage: "stale bytes that trigger compaction", EnvVars: []string{"KVS_COMPACTION_THRESHOLD"}},
			&cli.StringFlag{Name: "metrics-addr", Usage: "address to serve /metrics on; empty disables it"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logger := slog.Default()

	loader := config.NewLoader(c.String("config"))
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// CLI flags (and the env vars urfave/cli already folded into them) win
	// over the file, matching Flag > Env > File precedence.
	if c.IsSet("addr") {
		cfg.Addr = c.String("addr")
	}
	if c.IsSet("engine") {
		cfg.Engine = engine.Name(c.String("engine"))
	}
	if c.IsSet("threads") {
		cfg.Threads = c.Int("threads")
	}
	if c.IsSet("compaction-threshold") {
		cfg.CompactionThreshold = c.Int64("compaction-threshold")
	}
	if !cfg.Engine.Valid() {
		return fmt.Errorf("invalid engine %q: want %q or %q", cfg.Engine, engine.KVS, engine.Sled)
	}

	dir := c.String("dir")
	if err := engine.CheckMarker(dir, cfg.Engine); err != nil {
		return fmt.Errorf("engine check: %w", err)
	}

	eng, closeEngine, err := openEngine(dir, cfg, logger)
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}

	pool, err := threadpool.NewSharedQueuePool(cfg.Threads, logger)
	if err != nil {
		return fmt.Errorf("start thread pool: %w", err)
	}

	reg := prometheus.NewRegistry()
	metricsReg := metrics.NewRegistry(reg)

	srv := server.New(server.Config{Addr: cfg.Addr, Logger: logger, Metrics: metricsReg}, eng, pool)

	shutdownHandler := shutdown.NewHandler(30 * time.Second)

	var metricsServer *http.Server
	if addr := c.String("metrics-addr"); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Addr: addr, Handler: mux}
		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			logger.Info("shutting down metrics server")
			return metricsServer.Shutdown(ctx)
		})
		go func() {
			logger.Info("metrics server listening", "addr", addr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	if lk, ok := eng.(*kvs.LogKv); ok {
		watcher := config.NewWatcher(loader, lk.SetCompactionThreshold, logger)
		watcher.StartAsync()
		shutdownHandler.OnShutdown(func(context.Context) error {
			watcher.Stop()
			return nil
		})
	}

	// Hooks run in reverse registration order: stop the server, then the
	// thread pool, then close the engine.
	shutdownHandler.OnShutdown(func(context.Context) error {
		logger.Info("closing engine")
		return closeEngine()
	})
	shutdownHandler.OnShutdown(func(context.Context) error {
		logger.Info("stopping thread pool")
		pool.Close()
		return nil
	})
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		logger.Info("shutting down server")
		return srv.Shutdown(ctx)
	})

	go func() {
		if err := srv.Serve(); err != nil {
			logger.Error("server error", "error", err)
		}
	}()

	logger.Info("kvs-server started", "dir", dir, "addr", cfg.Addr, "engine", cfg.Engine)
	return shutdownHandler.Wait()
}

// openEngine opens the configured engine and returns a closer hiding the
// concrete type from the caller.
func openEngine(dir string, cfg config.Config, logger *slog.Logger) (engine.Engine, func() error, error) {
	switch cfg.Engine {
	case engine.Sled:
		e, err := badgerengine.Open(dir, badgerengine.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return e, e.Close, nil
	default:
		e, err := kvs.Open(dir, kvs.WithCompactionThreshold(cfg.CompactionThreshold), kvs.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return e, e.Close, nil
	}
}
