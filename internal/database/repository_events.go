package database

import (
	"context"
	"time"

	"backtest-engine/internal/models"
)

// EventRepository persists the audit-log entries the journal forwards
// its callback to.
type EventRepository struct {
	db      *DB
	baseUTC time.Time
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *DB, baseUTC time.Time) *EventRepository {
	return &EventRepository{db: db, baseUTC: baseUTC}
}

// InsertEvent writes one event row. detail is stored as JSONB.
func (r *EventRepository) InsertEvent(ctx context.Context, ev models.Event) error {
	eventTime := r.baseUTC.Add(time.Duration(ev.Timestamp) * time.Minute)

	var signalFK, operationFK, strategyFK, parentOpID interface{}
	if ev.SignalID != 0 {
		signalFK = ev.SignalID
	}
	if ev.OperationID != 0 {
		operationFK = ev.OperationID
	}
	if ev.StrategyID != 0 {
		strategyFK = ev.StrategyID
	}
	if ev.ParentOperationID != 0 {
		parentOpID = ev.ParentOperationID
	}

	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO event_log (
			event_timestamp, investor_fk, signal_fk, operation_fk, ticker,
			event_type, detail, capital_before, capital_after,
			no_op_motive, result, close_motive, close_price,
			strategy_fk, quantity, sl, tp, parent_operation_id,
			price_max, price_min, opening_bar_id, signal_price, run_id
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13,
			$14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23
		)`,
		eventTime, ev.InvestorID, signalFK, operationFK, ev.Ticker,
		string(ev.Type), ev.Detail, ev.CapitalBefore, ev.CapitalAfter,
		ev.MotiveNoOperation, ev.Resultado, ev.MotiveClose, ev.ClosePrice,
		strategyFK, ev.Quantity, ev.SL, ev.TP, parentOpID,
		ev.PriceMax, ev.PriceMin, ev.OpeningBarID, ev.SignalPrice, ev.RunID,
	)
	return err
}
