// Command backtest-api serves the control plane: trigger runs over HTTP,
// inspect their status, and stream their journal live. It is an additive
// convenience over cmd/backtest's batch CLI — the same per-investor
// Simulator Core loop, just triggered and observed remotely.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backtest-engine/config"
	"backtest-engine/internal/api"
	"backtest-engine/internal/auth"
	"backtest-engine/internal/cache"
	"backtest-engine/internal/database"
	"backtest-engine/internal/events"
	"backtest-engine/internal/logging"
	"backtest-engine/internal/vaultsecrets"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Exit(1)
	}

	logger := logging.New(&logging.Config{
		Level:      cfg.LoggingConfig.Level,
		Output:     cfg.LoggingConfig.Output,
		JSONFormat: cfg.LoggingConfig.JSONFormat,
		Component:  "backtest-api",
	})
	logging.SetDefault(logger)

	ctx := context.Background()

	vault, err := vaultsecrets.NewClient(cfg.VaultConfig)
	if err != nil {
		logger.Error("failed to initialize vault client", "error", err)
		os.Exit(1)
	}

	dsn, err := vault.DatabaseDSN(ctx, cfg.DatabaseConfig)
	if err != nil {
		logger.Error("failed to resolve database credentials", "error", err)
		os.Exit(1)
	}

	db, err := database.NewDB(ctx, database.Config{
		DSN:      dsn,
		MaxConns: cfg.DatabaseConfig.MaxConns,
		MinConns: cfg.DatabaseConfig.MinConns,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	var redisSvc *cache.CacheService
	if cfg.RedisConfig.Enabled {
		cfg.RedisConfig.Password = vault.RedisPassword(ctx, cfg.RedisConfig.Password)
		if svc, err := cache.NewCacheService(cfg.RedisConfig); err != nil {
			logger.Warn("redis unavailable, continuing without L2 strategy cache", "error", err)
		} else {
			redisSvc = svc
			defer redisSvc.Close()
		}
	}

	bus := events.NewEventBus()
	hub := api.InitWebSocket(bus)

	runs := api.NewRunManager(db, redisSvc, bus, cfg.SimConfig, time.Unix(0, 0).UTC())

	var jwtManager *auth.JWTManager
	if cfg.AuthConfig.Enabled {
		jwtManager = auth.NewJWTManager(cfg.AuthConfig.JWTSecret, cfg.AuthConfig.AccessTokenDuration)
	}

	server := api.NewServer(api.Config{
		Port:           cfg.ServerConfig.Port,
		Host:           cfg.ServerConfig.Host,
		AllowedOrigins: cfg.ServerConfig.AllowedOrigins,
		ReadTimeout:    time.Duration(cfg.ServerConfig.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.ServerConfig.WriteTimeout) * time.Second,
	}, db, runs, jwtManager, hub)

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("control plane server stopped", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down control plane")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)
}
