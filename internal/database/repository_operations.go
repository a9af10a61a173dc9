package database

import (
	"context"
	"time"

	"backtest-engine/internal/models"
)

// OperationRepository persists operation rows: insert on open (parent or
// child), and the three update shapes the closure/DCA paths drive.
type OperationRepository struct {
	db      *DB
	baseUTC time.Time
}

// NewOperationRepository constructs a repository that converts minute-ts
// values to absolute timestamps relative to baseUTC.
func NewOperationRepository(db *DB, baseUTC time.Time) *OperationRepository {
	return &OperationRepository{db: db, baseUTC: baseUTC}
}

func (r *OperationRepository) tsToTime(ts int64) time.Time {
	return r.baseUTC.Add(time.Duration(ts) * time.Minute)
}

// percentages reproduces the source's porc_sl/porc_tp derivation:
// |entry - SL| / entry * 100 and the TP analogue, sign-aware by side,
// rounded to two decimals, never negative.
func percentages(op *models.Operation) (porcSL, porcTP float64) {
	if op.EntryPrice <= 0 {
		return 0, 0
	}
	round2 := func(v float64) float64 {
		return float64(int64(v*100+0.5)) / 100
	}
	if op.Side == models.LONG {
		if op.StopLoss > 0 {
			porcSL = round2((op.EntryPrice - op.StopLoss) / op.EntryPrice * 100)
		}
		if op.TakeProfit > 0 {
			porcTP = round2((op.TakeProfit - op.EntryPrice) / op.EntryPrice * 100)
		}
	} else {
		if op.StopLoss > 0 {
			porcSL = round2((op.StopLoss - op.EntryPrice) / op.EntryPrice * 100)
		}
		if op.TakeProfit > 0 {
			porcTP = round2((op.EntryPrice - op.TakeProfit) / op.EntryPrice * 100)
		}
	}
	if porcSL < 0 {
		porcSL = 0
	}
	if porcTP < 0 {
		porcTP = 0
	}
	return porcSL, porcTP
}

// InsertOperation persists a newly opened parent or child operation and
// returns its assigned id.
func (r *OperationRepository) InsertOperation(ctx context.Context, op *models.Operation, investorTotalCapital, investorAvailableCapital float64) (int64, error) {
	porcSL, porcTP := percentages(op)

	var parentID interface{}
	if op.IsChild {
		parentID = op.ParentOperationID
	}

	var id int64
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO operations_simulated (
			investor_fk, strategy_fk, signal_fk, ticker_fk, timestamp_open,
			entry_price, quantity, leverage, side,
			capital_risk_used, capital_blocked, stop_loss_price, take_profit_price,
			state, total_exposure_value, investor_total_capital, investor_available_capital,
			parent_operation_id, price_max, price_min, opening_bar_id,
			exposure_touches, porc_sl, porc_tp, mult_sl_assigned, mult_tp_assigned
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13,
			$14, $15, $16, $17,
			$18, $19, $20, $21,
			$22, $23, $24, $25, $26
		) RETURNING id`,
		op.InvestorID, op.StrategyID, op.SignalID, op.Ticker, r.tsToTime(op.TimestampOpen),
		op.EntryPrice, op.Quantity, op.Leverage, op.Side.String(),
		op.InvestedCapital, op.BlockedCapital, op.StopLoss, op.TakeProfit,
		string(op.State), op.InvestedCapital, investorTotalCapital, investorAvailableCapital,
		parentID, op.PersistedPriceMax(), op.PersistedPriceMin(), op.OpeningBarID,
		op.ExposureTouches, porcSL, porcTP, op.MultSLAssigned, op.MultTPAssigned,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	op.ID = id
	return id, nil
}

// UpdateTotalClose writes a full close: state, timestamps, exec price,
// extremes, duration.
func (r *OperationRepository) UpdateTotalClose(ctx context.Context, op *models.Operation, motive string, closingBarID int64) error {
	closeTime := r.tsToTime(op.TimestampClose)
	durationMin := closeTime.Sub(r.tsToTime(op.TimestampOpen)).Minutes()

	_, err := r.db.Pool.Exec(ctx, `
		UPDATE operations_simulated SET
			state = $2,
			timestamp_close = $3,
			close_price = $4,
			result = $5,
			close_motive = $6,
			total_exposure_value = 0,
			price_max = $7,
			price_min = $8,
			duration_minutes = $9,
			closing_bar_id = $10
		WHERE id = $1`,
		op.ID, string(models.StateClosedTotal), closeTime, op.LastExecClosePrice,
		op.RealizedPnL, motive, op.PersistedPriceMax(), op.PersistedPriceMin(),
		durationMin, closingBarID,
	)
	return err
}

// UpdatePartialClose writes a partial close: adds to result, updates
// extremes and duration. It does not write the quantity column, so the
// row keeps the quantity written at insert even though
// Operation.ClosePartialSpawnChild has zeroed the in-memory quantity.
func (r *OperationRepository) UpdatePartialClose(ctx context.Context, op *models.Operation, closingBarID int64) error {
	closeTime := r.tsToTime(op.TimestampClose)
	durationMin := closeTime.Sub(r.tsToTime(op.TimestampOpen)).Minutes()

	_, err := r.db.Pool.Exec(ctx, `
		UPDATE operations_simulated SET
			state = $2,
			timestamp_close = $3,
			result = COALESCE(result, 0) + $4,
			price_max = $5,
			price_min = $6,
			duration_minutes = $7,
			closing_bar_id = $8
		WHERE id = $1`,
		op.ID, string(models.StateClosedPartial), closeTime, op.RealizedPnL,
		op.PersistedPriceMax(), op.PersistedPriceMin(), durationMin, closingBarID,
	)
	return err
}

// UpdateExposure writes a DCA merge-in: new entry, quantity,
// invested/blocked capital, increments exposure touches.
func (r *OperationRepository) UpdateExposure(ctx context.Context, op *models.Operation) error {
	porcSL, porcTP := percentages(op)

	_, err := r.db.Pool.Exec(ctx, `
		UPDATE operations_simulated SET
			entry_price = $2,
			quantity = $3,
			capital_risk_used = $4,
			capital_blocked = $5,
			total_exposure_value = $6,
			exposure_touches = exposure_touches + 1,
			porc_sl = $7,
			porc_tp = $8
		WHERE id = $1`,
		op.ID, op.EntryPrice, op.Quantity, op.InvestedCapital,
		op.BlockedCapital, op.InvestedCapital, porcSL, porcTP,
	)
	return err
}

// UpdateUnrealizedPnL writes the finalize-pass mark-to-market snapshot.
func (r *OperationRepository) UpdateUnrealizedPnL(ctx context.Context, op *models.Operation, pnl float64) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE operations_simulated SET unrealized_pnl = $2 WHERE id = $1`,
		op.ID, pnl,
	)
	return err
}
