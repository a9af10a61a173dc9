package database

import (
	"context"
	"time"

	"backtest-engine/internal/models"
)

// SignalRepository provides minute-keyed signal lookups, grounded on the
// original's persistent-connection SignalProviderDB pattern — one pool,
// reused across the whole run.
type SignalRepository struct {
	db      *DB
	baseUTC time.Time
}

// NewSignalRepository constructs a SignalRepository.
func NewSignalRepository(db *DB, baseUTC time.Time) *SignalRepository {
	return &SignalRepository{db: db, baseUTC: baseUTC}
}

// SignalsByMinute returns every signal timestamped exactly ts, in the
// provider's native row order.
func (r *SignalRepository) SignalsByMinute(ctx context.Context, ts int64) ([]models.SignalRecord, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, strategy_fk, ticker_fk, "timestamp", side,
		       take_profit_price, stop_loss_price, leverage_calculated,
		       signal_price, mult_sl_assigned, mult_tp_assigned
		  FROM signals_generated
		 WHERE "timestamp" = $1`, ts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []models.SignalRecord
	for rows.Next() {
		var s models.SignalRecord
		var side string
		var multSL, multTP *float64

		if err := rows.Scan(
			&s.ID, &s.StrategyID, &s.Ticker, &s.Timestamp, &side,
			&s.TakeProfitPrice, &s.StopLossPrice, &s.LeverageCalculated,
			&s.SignalPrice, &multSL, &multTP,
		); err != nil {
			return nil, err
		}
		s.Side = models.ParseSide(side)
		if multSL != nil {
			s.MultSLAssigned = *multSL
		}
		if multTP != nil {
			s.MultTPAssigned = *multTP
		}
		signals = append(signals, s)
	}
	return signals, rows.Err()
}
