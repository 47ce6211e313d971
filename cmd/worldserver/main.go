// Package main provides the world server binary: it loads the world
// topology, restores persisted state and runs the world simulations.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/mudworld/internal/config"
	"github.com/cory-johannsen/mudworld/internal/game/dice"
	"github.com/cory-johannsen/mudworld/internal/game/world"
	"github.com/cory-johannsen/mudworld/internal/observability"
	"github.com/cory-johannsen/mudworld/internal/scripting"
	"github.com/cory-johannsen/mudworld/internal/server"
	"github.com/cory-johannsen/mudworld/internal/simulation"
	"github.com/cory-johannsen/mudworld/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	metrics := observability.NewMetrics()
	src := dice.NewCryptoSource()
	lc := server.NewLifecycle(logger)

	var store *stateStore
	if cfg.Database.Enabled {
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		lc.OnShutdown("database", func(context.Context) error {
			pool.Close()
			return nil
		})
		store = newStateStore(pool.DB(), observability.Component(logger, "storage"))
	}

	w, err := loadWorld(ctx, cfg.World, src, metrics, store, logger)
	if err != nil {
		logger.Fatal("loading world", zap.Error(err))
	}

	var hooks simulation.HookCaller
	if cfg.Simulation.ScriptDir != "" {
		mgr := scripting.NewManager(src, observability.Component(logger, "scripting"))
		n, err := mgr.LoadDir(cfg.Simulation.ScriptDir, cfg.Simulation.ScriptInstructionLimit)
		if err != nil {
			logger.Fatal("loading scripts", zap.Error(err))
		}
		simulation.BindScripts(mgr, w, logger)
		lc.OnShutdown("scripting", func(context.Context) error {
			mgr.Close()
			return nil
		})
		hooks = mgr
		logger.Info("scripts loaded",
			zap.String("dir", cfg.Simulation.ScriptDir),
			zap.Int("vms", n),
		)
	}

	sim := simulation.New(cfg.Simulation, w, src, hooks, metrics, observability.Component(logger, "simulation"))
	lc.Add("simulation", server.BackgroundService(sim.Start))

	if cfg.Metrics.Addr != "" {
		lc.Add("metrics", server.ServiceFunc(func(ctx context.Context) error {
			return metrics.Serve(ctx, cfg.Metrics.Addr, logger)
		}))
	}

	if store != nil {
		lc.OnShutdown("persist world", func(ctx context.Context) error {
			return store.save(ctx, w)
		})
	}

	logger.Info("world server ready",
		zap.Int("areas", len(w.Areas())),
		zap.Int("grids", len(w.Grids())),
		zap.Int("locations", w.LocationCount()),
		zap.Duration("startup", time.Since(start)),
	)

	if err := lc.Run(ctx); err != nil {
		logger.Fatal("world server stopped with error", zap.Error(err))
	}
}

// loadWorld reads the content directory and builds a sealed world, restoring
// persisted grid overrides before sealing and area weather afterwards.
func loadWorld(ctx context.Context, cfg config.WorldConfig, src dice.Source, obs world.CacheObserver, store *stateStore, logger *zap.Logger) (*world.World, error) {
	loadStart := time.Now()
	content, err := world.LoadContentFromDir(cfg.ContentDir)
	if err != nil {
		return nil, err
	}

	worldLogger := observability.Component(logger, "world")
	w := world.New(world.Options{
		CacheSize: cfg.GridCacheSize,
		Observer:  obs,
		Logger:    worldLogger,
	})
	opts := world.BuildOptions{
		Source:      src,
		TerrainSeed: cfg.TerrainSeed,
		Logger:      worldLogger,
	}
	if store != nil {
		opts.BeforeSeal = func(w *world.World) error {
			return store.restoreOverrides(ctx, w)
		}
	}
	if err := content.Build(w, opts); err != nil {
		return nil, err
	}
	if store != nil {
		store.restoreWeather(ctx, w)
	}

	logger.Info("world loaded",
		zap.String("dir", cfg.ContentDir),
		zap.Int("names", len(w.Names())),
		zap.Duration("elapsed", time.Since(loadStart)),
	)
	return w, nil
}
