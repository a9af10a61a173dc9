// Package database wires Postgres access for the simulator: connection
// pooling, schema migrations, and the per-entity repositories the engine
// reads signals/prices/strategies from and writes operations/events/
// capital through.
package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the Postgres connection pool shared across a run.
type DB struct {
	Pool *pgxpool.Pool
}

// Config holds the connection parameters, independent of how the DSN
// itself was resolved (plain config vs. Vault-backed credentials).
type Config struct {
	DSN      string
	MaxConns int32
	MinConns int32
}

// NewDB opens the pool and verifies connectivity.
func NewDB(ctx context.Context, cfg Config) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	log.Println("[DB] connected to Postgres")

	return &DB{Pool: pool}, nil
}

// Close releases the pool.
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		log.Println("[DB] connection closed")
	}
}

// RunMigrations creates the schema the engine reads and writes against,
// idempotently.
func (db *DB) RunMigrations(ctx context.Context) error {
	log.Println("[DB] running migrations...")

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS investors (
			id BIGSERIAL PRIMARY KEY,
			initial_capital DECIMAL(20,8) NOT NULL,
			current_capital DECIMAL(20,8) NOT NULL,
			operations_today INT NOT NULL DEFAULT 0,
			max_daily_operations INT NOT NULL DEFAULT 0,
			max_open_operations INT NOT NULL DEFAULT 0,
			current_day BIGINT NOT NULL DEFAULT 0,
			slippage_open_pct DECIMAL(10,4) NOT NULL DEFAULT 0,
			slippage_close_pct DECIMAL(10,4) NOT NULL DEFAULT 0,
			commission_pct DECIMAL(10,4) NOT NULL DEFAULT 0,
			drawdown_max_pct DECIMAL(10,4) NOT NULL DEFAULT 0,
			drawdown_active BOOLEAN NOT NULL DEFAULT FALSE,
			realized_pnl_accumulated DECIMAL(20,8) NOT NULL DEFAULT 0,
			halted BOOLEAN NOT NULL DEFAULT FALSE,
			desynchronized BOOLEAN NOT NULL DEFAULT FALSE,
			use_signal_parameters BOOLEAN NOT NULL DEFAULT FALSE,
			investor_leverage INT NOT NULL DEFAULT 0,
			max_leverage INT NOT NULL DEFAULT 0,
			risk_max_pct DECIMAL(10,4) NOT NULL DEFAULT 0,
			size_min DECIMAL(20,8) NOT NULL DEFAULT 0,
			size_max DECIMAL(20,8) NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS strategies (
			id BIGSERIAL PRIMARY KEY,
			min_advance_pct DECIMAL(10,4) NOT NULL DEFAULT 0,
			protection_retrace_pct DECIMAL(10,4) NOT NULL DEFAULT 0,
			partial_retrace_pct DECIMAL(10,4) NOT NULL DEFAULT 0,
			partial_liquidation_pct DECIMAL(10,4) NOT NULL DEFAULT 0,
			no_advance_retrace_pct DECIMAL(10,4) NOT NULL DEFAULT 0,
			max_partials INT NOT NULL DEFAULT 0,
			enable_profit_protection BOOLEAN NOT NULL DEFAULT FALSE,
			enable_partial BOOLEAN NOT NULL DEFAULT FALSE,
			enable_retracement_without_advance BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS ohlcv_raw_1m (
			id BIGSERIAL PRIMARY KEY,
			ticker VARCHAR(32) NOT NULL,
			"timestamp" BIGINT NOT NULL,
			"open" DECIMAL(20,8) NOT NULL,
			high DECIMAL(20,8) NOT NULL,
			low DECIMAL(20,8) NOT NULL,
			"close" DECIMAL(20,8) NOT NULL,
			UNIQUE(ticker, "timestamp")
		)`,
		`CREATE TABLE IF NOT EXISTS signals_generated (
			id BIGSERIAL PRIMARY KEY,
			strategy_fk BIGINT NOT NULL REFERENCES strategies(id),
			ticker_fk VARCHAR(32) NOT NULL,
			"timestamp" BIGINT NOT NULL,
			side VARCHAR(8) NOT NULL,
			take_profit_price DECIMAL(20,8) NOT NULL DEFAULT 0,
			stop_loss_price DECIMAL(20,8) NOT NULL DEFAULT 0,
			leverage_calculated INT NOT NULL DEFAULT 1,
			signal_price DECIMAL(20,8) NOT NULL DEFAULT 0,
			mult_sl_assigned DECIMAL(10,4),
			mult_tp_assigned DECIMAL(10,4)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_generated_ts ON signals_generated("timestamp")`,
		`CREATE TABLE IF NOT EXISTS operations_simulated (
			id BIGSERIAL PRIMARY KEY,
			investor_fk BIGINT NOT NULL REFERENCES investors(id),
			strategy_fk BIGINT NOT NULL REFERENCES strategies(id),
			signal_fk BIGINT,
			ticker_fk VARCHAR(32) NOT NULL,
			timestamp_open TIMESTAMPTZ NOT NULL,
			entry_price DECIMAL(20,8) NOT NULL,
			quantity DECIMAL(20,8) NOT NULL,
			leverage INT NOT NULL,
			side VARCHAR(8) NOT NULL,
			capital_risk_used DECIMAL(20,8) NOT NULL,
			capital_blocked DECIMAL(20,8) NOT NULL,
			stop_loss_price DECIMAL(20,8) NOT NULL,
			take_profit_price DECIMAL(20,8) NOT NULL,
			state VARCHAR(20) NOT NULL,
			total_exposure_value DECIMAL(20,8) NOT NULL DEFAULT 0,
			investor_total_capital DECIMAL(20,8),
			investor_available_capital DECIMAL(20,8),
			parent_operation_id BIGINT REFERENCES operations_simulated(id),
			price_max DECIMAL(20,8),
			price_min DECIMAL(20,8),
			opening_bar_id BIGINT,
			closing_bar_id BIGINT,
			exposure_touches INT NOT NULL DEFAULT 1,
			porc_sl DECIMAL(10,4) NOT NULL DEFAULT 0,
			porc_tp DECIMAL(10,4) NOT NULL DEFAULT 0,
			mult_sl_assigned DECIMAL(10,4),
			mult_tp_assigned DECIMAL(10,4),
			timestamp_close TIMESTAMPTZ,
			close_price DECIMAL(20,8),
			result DECIMAL(20,8) NOT NULL DEFAULT 0,
			close_motive VARCHAR(80),
			duration_minutes DECIMAL(20,4),
			unrealized_pnl DECIMAL(20,8)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_operations_simulated_investor ON operations_simulated(investor_fk)`,
		`CREATE INDEX IF NOT EXISTS idx_operations_simulated_open ON operations_simulated(investor_fk, ticker_fk, side) WHERE state = 'open'`,
		`CREATE TABLE IF NOT EXISTS event_log (
			id BIGSERIAL PRIMARY KEY,
			event_timestamp TIMESTAMPTZ NOT NULL,
			investor_fk BIGINT NOT NULL,
			signal_fk BIGINT,
			operation_fk BIGINT,
			ticker VARCHAR(32),
			event_type VARCHAR(40) NOT NULL,
			detail JSONB,
			capital_before DECIMAL(20,8),
			capital_after DECIMAL(20,8),
			no_op_motive VARCHAR(80),
			result DECIMAL(20,8),
			close_motive VARCHAR(80),
			close_price DECIMAL(20,8),
			strategy_fk BIGINT,
			quantity DECIMAL(20,8),
			sl DECIMAL(20,8),
			tp DECIMAL(20,8),
			parent_operation_id BIGINT,
			price_max DECIMAL(20,8),
			price_min DECIMAL(20,8),
			opening_bar_id BIGINT,
			signal_price DECIMAL(20,8),
			run_id VARCHAR(64)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_event_log_investor ON event_log(investor_fk)`,
		`CREATE INDEX IF NOT EXISTS idx_event_log_run ON event_log(run_id)`,
	}

	for _, stmt := range migrations {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	log.Println("[DB] migrations complete")
	return nil
}
