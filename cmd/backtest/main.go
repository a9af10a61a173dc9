// Command backtest runs the discrete-minute backtesting engine over a
// date range for every active investor, sequentially. Its surface is
// deliberately narrow per spec.md §6: a date range and nothing else —
// no flags, no interactive prompts. It exits 0 on success and non-zero
// on any configuration or connectivity failure before the first minute
// is simulated.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"backtest-engine/config"
	"backtest-engine/internal/cache"
	"backtest-engine/internal/database"
	"backtest-engine/internal/logging"
	"backtest-engine/internal/positions"
	"backtest-engine/internal/simulator"
	"backtest-engine/internal/stratcache"
	"backtest-engine/internal/vaultsecrets"
)

const isoMinuteLayout = "2006-01-02T15:04:00Z"

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: backtest <start_utc> <end_utc>  (ISO 8601, minute-truncated, inclusive)")
		os.Exit(1)
	}

	startTS, err := parseMinuteTS(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid start_utc: %v\n", err)
		os.Exit(1)
	}
	endTS, err := parseMinuteTS(os.Args[2])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid end_utc: %v\n", err)
		os.Exit(1)
	}
	if endTS < startTS {
		fmt.Fprintln(os.Stderr, "end_utc precedes start_utc")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(&logging.Config{
		Level:      cfg.LoggingConfig.Level,
		Output:     cfg.LoggingConfig.Output,
		JSONFormat: cfg.LoggingConfig.JSONFormat,
		Component:  "backtest",
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
		redisSvc, err = cache.NewCacheService(cfg.RedisConfig)
		if err != nil {
			logger.Warn("redis unavailable, continuing without L2 strategy cache", "error", err)
			redisSvc = nil
		} else {
			defer redisSvc.Close()
		}
	}

	investorsDB := database.NewInvestorRepository(db)
	operationsDB := database.NewOperationRepository(db, time.Unix(0, 0).UTC())
	eventsDB := database.NewEventRepository(db, time.Unix(0, 0).UTC())
	signalsDB := database.NewSignalRepository(db, time.Unix(0, 0).UTC())
	pricesDB := database.NewPriceRepository(db)
	strategyDB := database.NewStrategyRepository(db)

	investors, risks, err := investorsDB.ActiveInvestors(ctx)
	if err != nil {
		logger.Error("failed to load active investors", "error", err)
		os.Exit(1)
	}

	runID := uuid.New().String()

	closes, err := pricesDB.ClosesAt(ctx, endTS)
	if err != nil {
		logger.Warn("failed to load finalize mark-to-market prices, finalize will skip unresolved tickers", "error", err)
		closes = map[string]float64{}
	}

	exitCode := 0
	for i, inv := range investors {
		strategyCache := stratcache.New(redisSvc, time.Duration(cfg.SimConfig.StrategyCacheTTLSec)*time.Second, strategyDB)
		tracker := positions.NewTracker(inv.ID, zerolog.New(os.Stderr).With().Timestamp().Logger())

		engine := simulator.NewEngine(
			inv, risks[i], runID,
			signalsDB, pricesDB, strategyCache,
			operationsDB, investorsDB, eventsDB,
			tracker,
		)

		if err := engine.Run(ctx, startTS, endTS, closes); err != nil {
			logger.Error("run failed for investor", "investor_id", inv.ID, "error", err)
			exitCode = 1
			continue
		}

		logger.Info("run completed for investor",
			"investor_id", inv.ID,
			"halted", inv.Halted,
			"desynchronized", inv.Desynchronized,
			"final_capital", inv.CurrentCapital,
		)
	}

	os.Exit(exitCode)
}

func parseMinuteTS(iso string) (int64, error) {
	t, err := time.Parse(isoMinuteLayout, iso)
	if err != nil {
		t, err = time.Parse(time.RFC3339, iso)
		if err != nil {
			return 0, err
		}
	}
	return t.Unix() / 60, nil
}
