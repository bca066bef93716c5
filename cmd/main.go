package main

import (
	"ShelfAPI/internal/auth"
	"ShelfAPI/internal/cache"
	"ShelfAPI/internal/config"
	"ShelfAPI/internal/db"
	"ShelfAPI/internal/logger"
	"ShelfAPI/internal/model"
	"ShelfAPI/internal/resources"
	"ShelfAPI/internal/router"
	"ShelfAPI/internal/store"
	"ShelfAPI/internal/store/memstore"
	"ShelfAPI/internal/store/pgstore"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	debugFlag := flag.Bool("d", false, "enable debug logging")
	flag.Parse()

	cfg := config.LoadConfig()
	if err := logger.Init("."); err != nil {
		fmt.Fprintf(os.Stderr, "log init failed: %v\n", err)
		os.Exit(1)
	}
	logger.SetDebug(*debugFlag)
	if err := cfg.Validate(); err != nil {
		fail("config_invalid", err)
	}

	if err := model.InitRegistry(cfg.ResourcesDir); err != nil {
		fail("registry_init_failed", err)
	}
	logger.Info("resources_initialized", map[string]any{"count": len(model.Registry)})

	st, err := openStore(cfg)
	if err != nil {
		fail("store_init_failed", err)
	}
	defer db.ClosePostgres()

	cs, err := openCache(cfg)
	if err != nil {
		fail("cache_init_failed", err)
	}

	var validator *auth.JWTValidator
	if cfg.Auth.Enabled {
		if validator, err = auth.NewJWTValidator(cfg.Auth.JWT); err != nil {
			fail("auth_init_failed", err)
		}
	}

	set, err := resources.Build(model.Registry, st, cs)
	if err != nil {
		fail("views_init_failed", err)
	}

	checks := map[string]router.Pinger{"store": st}
	if cs != nil {
		checks["cache"] = cs
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(cfg, router.Deps{Resources: set, Validator: validator, Checks: checks}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server_shutdown_failed", map[string]any{"error": err.Error()})
		}
	}()

	logger.Info("server_start", map[string]any{
		"port":  cfg.Port,
		"store": cfg.StoreBackend,
		"cache": cfg.Cache.Backend,
		"auth":  cfg.Auth.Enabled,
	})
	log.Printf("🚀 Starting server on port %s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fail("server_error", err)
	}
	logger.Info("server_stopped", nil)
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case "memory":
		logger.Warn("memory_store_enabled", nil)
		return memstore.New(), nil
	case "postgres":
		if err := db.InitPostgres(cfg.PostgresDSN); err != nil {
			return nil, err
		}
		logger.Info("postgres_connected", nil)
		if cfg.MigrateOnStart {
			if err := db.Migrate(cfg.PostgresDSN, cfg.MigrationsDir); err != nil {
				return nil, err
			}
		}
		return pgstore.New(db.Pool), nil
	}
	return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
}

func openCache(cfg *config.Config) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case "none":
		logger.Warn("cache_disabled", nil)
		return nil, nil
	case "memory":
		return cache.NewMemoryStore(cfg.Cache.Capacity, cfg.Cache.Shards), nil
	case "redis":
		db.InitRedis(cfg.RedisAddr)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := db.PingRedis(ctx); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		logger.Info("redis_connected", nil)
		return cache.NewRedisStore(db.RDB), nil
	}
	return nil, fmt.Errorf("unknown CACHE_BACKEND %q", cfg.Cache.Backend)
}

func fail(event string, err error) {
	logger.Error(event, map[string]any{"error": err.Error()})
	fmt.Fprintf(os.Stderr, "%s: %v\n", event, err)
	os.Exit(1)
}
