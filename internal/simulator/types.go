// Package simulator implements the minute-stepped backtesting loop: a
// per-investor engine that evaluates closures before ingesting signals,
// routes each signal to an open-or-DCA path, and finalizes the run with
// an unrealized P&L mark-to-market pass.
package simulator

import (
	"context"

	"backtest-engine/internal/models"
)

// SignalProvider yields every signal timestamped exactly ts.
type SignalProvider interface {
	SignalsByMinute(ctx context.Context, ts int64) ([]models.SignalRecord, error)
}

// PriceProvider yields the OHLC bar for (ticker, ts), or nil if absent.
type PriceProvider interface {
	Price(ctx context.Context, ticker string, ts int64) (*models.PriceRecord, error)
}

// StrategyLoader yields a strategy's cascade parameters, typically
// backed by internal/stratcache's lazy-loader chain.
type StrategyLoader interface {
	Get(ctx context.Context, strategyID int64) (models.StrategyParams, error)
}

// OperationPersistence is the write surface for operation rows.
type OperationPersistence interface {
	InsertOperation(ctx context.Context, op *models.Operation, investorTotalCapital, investorAvailableCapital float64) (int64, error)
	UpdateTotalClose(ctx context.Context, op *models.Operation, motive string, closingBarID int64) error
	UpdatePartialClose(ctx context.Context, op *models.Operation, closingBarID int64) error
	UpdateExposure(ctx context.Context, op *models.Operation) error
	UpdateUnrealizedPnL(ctx context.Context, op *models.Operation, pnl float64) error
}

// InvestorPersistence is the write surface for investor capital.
type InvestorPersistence interface {
	UpdateCapital(ctx context.Context, inv *models.Investor) error
}

// EventPersistence is the write surface for the audit log.
type EventPersistence interface {
	InsertEvent(ctx context.Context, ev models.Event) error
}
