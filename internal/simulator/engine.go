package simulator

import (
	"context"
	"fmt"

	"backtest-engine/internal/capital"
	"backtest-engine/internal/closure"
	"backtest-engine/internal/dca"
	"backtest-engine/internal/fees"
	"backtest-engine/internal/journal"
	"backtest-engine/internal/models"
	"backtest-engine/internal/positions"
	"backtest-engine/internal/validations"
)

type openKey struct {
	Ticker string
	Side   models.Side
}

// Engine runs one investor's simulation over a minute range. It is not
// safe for concurrent use by multiple goroutines — the scheduling model
// is single-threaded cooperative per investor (spec §5).
type Engine struct {
	Investor *models.Investor
	Risk     models.RiskConfig
	RunID    string

	Signals    SignalProvider
	Prices     PriceProvider
	Strategies StrategyLoader
	Operations OperationPersistence
	Investors  InvestorPersistence
	Events     EventPersistence

	Journal *journal.Journal
	Tracker *positions.Tracker

	openByID  map[int64]*models.Operation
	openByKey map[openKey]*models.Operation

	ctx context.Context
}

// NewEngine constructs an Engine and wires its journal's persistence
// callback to Events.InsertEvent.
func NewEngine(inv *models.Investor, risk models.RiskConfig, runID string, signals SignalProvider, prices PriceProvider, strategies StrategyLoader, ops OperationPersistence, investors InvestorPersistence, events EventPersistence, tracker *positions.Tracker) *Engine {
	e := &Engine{
		Investor:   inv,
		Risk:       risk,
		RunID:      runID,
		Signals:    signals,
		Prices:     prices,
		Strategies: strategies,
		Operations: ops,
		Investors:  investors,
		Events:     events,
		Tracker:    tracker,
		openByID:   make(map[int64]*models.Operation),
		openByKey:  make(map[openKey]*models.Operation),
		ctx:        context.Background(),
	}
	e.Journal = journal.New(func(ev models.Event) error {
		ev.RunID = e.RunID
		return e.Events.InsertEvent(e.ctx, ev)
	})
	return e
}

// Run iterates ts from tsStart to tsEnd inclusive in minute steps.
// closePrices supplies the mark-to-market price used by finalize for
// every ticker with a still-open position.
func (e *Engine) Run(ctx context.Context, tsStart, tsEnd int64, closePrices map[string]float64) error {
	e.ctx = ctx

	for ts := tsStart; ts <= tsEnd; ts++ {
		if e.Investor.Halted || e.Investor.Desynchronized {
			break
		}

		e.Investor.ResetDailyIfChanged(ts)

		if err := e.processClosures(ctx, ts); err != nil {
			return err
		}
		if e.Investor.Desynchronized {
			break
		}

		// A drawdown-triggered halt still lets this minute's signals run —
		// the open path itself rejects them on investor_halted_drawdown.
		// The loop terminates at the next ts check (spec.md's "engine stops
		// at the next check").
		if err := e.ingestSignals(ctx, ts); err != nil {
			return err
		}
	}

	if e.Investor.Desynchronized {
		return nil
	}
	return e.finalize(ctx, closePrices)
}

// processClosures evaluates the cascade against every currently open
// operation (a snapshot, so closures don't mutate the set they iterate).
func (e *Engine) processClosures(ctx context.Context, ts int64) error {
	snapshot := make([]*models.Operation, 0, len(e.openByID))
	for _, op := range e.openByID {
		snapshot = append(snapshot, op)
	}

	for _, op := range snapshot {
		if e.Investor.Halted || e.Investor.Desynchronized {
			break
		}
		if _, stillOpen := e.openByID[op.ID]; !stillOpen {
			continue
		}

		bar, err := e.Prices.Price(ctx, op.Ticker, ts)
		if err != nil {
			return fmt.Errorf("price lookup failed: %w", err)
		}
		if bar == nil {
			continue
		}

		op.UpdateExtremes(bar.High, bar.Low)

		params, err := e.Strategies.Get(ctx, op.StrategyID)
		if err != nil {
			return fmt.Errorf("strategy lookup failed: %w", err)
		}

		rates := closure.Rates{
			CloseSlippagePct: e.Investor.SlippageClosePct,
			CommissionPct:    e.Investor.CommissionPct,
		}
		out := closure.Evaluate(op, closure.Bar{Open: bar.Open, High: bar.High, Low: bar.Low, Close: bar.Close}, params, rates)
		if out == nil {
			continue
		}

		if out.Total {
			if err := e.settleTotalClose(ctx, op, out, bar.BarID, ts); err != nil {
				return err
			}
			continue
		}
		if err := e.settlePartialClose(ctx, op, out, params, bar.BarID, ts); err != nil {
			return err
		}
	}

	if e.Investor.DrawdownActive {
		e.Investor.Halted = true
	}
	return nil
}

func (e *Engine) settleTotalClose(ctx context.Context, op *models.Operation, out *closure.Outcome, barID, ts int64) error {
	capitalBefore := e.Investor.CurrentCapital
	net := op.CloseTotal(out.ExecPrice, out.ExitCommission, ts)
	capital.Credit(e.Investor, op.InvestedCapital+net)
	e.Investor.RegisterRealizedPnL(net)

	if err := e.Operations.UpdateTotalClose(ctx, op, out.Motive, barID); err != nil {
		e.markPersistenceError(ctx, "update_op_total_close", op, ts, err)
		return nil
	}

	delete(e.openByID, op.ID)
	delete(e.openByKey, openKey{Ticker: op.Ticker, Side: op.Side})
	e.Tracker.RecordClose(op, out.Motive, true)

	e.Journal.Log(models.Event{
		Type:        models.EventCloseTotal,
		Timestamp:   ts,
		InvestorID:  e.Investor.ID,
		OperationID: op.ID,
		Ticker:      op.Ticker,
		StrategyID:  op.StrategyID,
		MotiveClose: out.Motive,
		ClosePrice:  out.ExecPrice,
		Resultado:   net,
		Quantity:    op.Quantity,
		SL:          op.StopLoss,
		TP:          op.TakeProfit,
		PriceMax:    op.PersistedPriceMax(),
		PriceMin:    op.PersistedPriceMin(),
		CapitalBefore: capitalBefore,
		CapitalAfter:  e.Investor.CurrentCapital,
	})
	return nil
}

func (e *Engine) settlePartialClose(ctx context.Context, op *models.Operation, out *closure.Outcome, params models.StrategyParams, barID, ts int64) error {
	capitalBefore := e.Investor.CurrentCapital
	result := op.ClosePartialSpawnChild(out.ExecPrice, out.ExitCommission, ts, params.PartialLiquidationFrac())
	if result == nil {
		return nil
	}

	capital.Credit(e.Investor, result.CapitalLiq+result.PnLNet)
	e.Investor.RegisterRealizedPnL(result.PnLNet)

	if err := e.Operations.UpdatePartialClose(ctx, op, barID); err != nil {
		e.markPersistenceError(ctx, "update_op_partial_close", op, ts, err)
		return nil
	}

	child := result.Child
	child.TimestampOpen = ts
	child.OpeningBarID = barID
	childID, err := e.Operations.InsertOperation(ctx, child, e.Investor.CurrentCapital, e.Investor.CurrentCapital)
	if err != nil {
		e.markPersistenceError(ctx, "insert_operation_child", op, ts, err)
		return nil
	}
	child.ID = childID

	delete(e.openByID, op.ID)
	e.openByID[child.ID] = child
	e.openByKey[openKey{Ticker: child.Ticker, Side: child.Side}] = child
	e.Tracker.RecordClose(op, out.Motive, false)
	e.Tracker.RecordChildOpen(child)

	e.Journal.Log(models.Event{
		Type:              models.EventClosePartial,
		Timestamp:         ts,
		InvestorID:        e.Investor.ID,
		OperationID:       op.ID,
		Ticker:            op.Ticker,
		StrategyID:        op.StrategyID,
		MotiveClose:       out.Motive,
		ClosePrice:        out.ExecPrice,
		Resultado:         result.PnLNet,
		Quantity:          result.QtyLiquidated,
		ParentOperationID: op.ID,
		CapitalBefore:     capitalBefore,
		CapitalAfter:      e.Investor.CurrentCapital,
	})
	e.Journal.Log(models.Event{
		Type:              models.EventOpenChildPartial,
		Timestamp:         ts,
		InvestorID:        e.Investor.ID,
		OperationID:       child.ID,
		Ticker:            child.Ticker,
		StrategyID:        child.StrategyID,
		ParentOperationID: op.ID,
		Quantity:          child.Quantity,
		SL:                child.StopLoss,
		TP:                child.TakeProfit,
		OpeningBarID:      barID,
	})
	return nil
}

// ingestSignals fetches and routes every signal timestamped ts.
func (e *Engine) ingestSignals(ctx context.Context, ts int64) error {
	signals, err := e.Signals.SignalsByMinute(ctx, ts)
	if err != nil {
		return fmt.Errorf("signal lookup failed: %w", err)
	}

	for _, sig := range signals {
		key := openKey{Ticker: sig.Ticker, Side: sig.Side}
		existing, hasOpen := e.openByKey[key]

		if !sig.MultipliersValid() {
			if hasOpen {
				e.rejectDCA(ts, sig, existing, models.MotiveInvalidMultipliers)
			} else {
				e.rejectOpen(ts, sig, models.MotiveInvalidMultipliers)
			}
			continue
		}

		bar, err := e.Prices.Price(ctx, sig.Ticker, ts)
		if err != nil {
			return fmt.Errorf("price lookup failed: %w", err)
		}
		if bar == nil {
			e.rejectOpen(ts, sig, models.MotiveNoMinutePrice)
			continue
		}

		if hasOpen {
			if err := e.applyDCA(ctx, existing, sig, bar, ts); err != nil {
				return err
			}
			continue
		}
		if err := e.openOperation(ctx, sig, bar, ts); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) rejectOpen(ts int64, sig models.SignalRecord, motive string) {
	e.Journal.Log(models.Event{
		Type:              models.EventRejectionOpen,
		Timestamp:         ts,
		InvestorID:        e.Investor.ID,
		SignalID:          sig.ID,
		Ticker:            sig.Ticker,
		StrategyID:        sig.StrategyID,
		MotiveNoOperation: motive,
		SignalPrice:       sig.SignalPrice,
	})
}

func (e *Engine) rejectDCA(ts int64, sig models.SignalRecord, op *models.Operation, motive string) {
	e.Journal.Log(models.Event{
		Type:              models.EventRejectionDCA,
		Timestamp:         ts,
		InvestorID:        e.Investor.ID,
		SignalID:          sig.ID,
		OperationID:       op.ID,
		Ticker:            sig.Ticker,
		StrategyID:        sig.StrategyID,
		MotiveNoOperation: motive,
		SignalPrice:       sig.SignalPrice,
	})
}

// openOperation implements spec.md §4.7's open path.
func (e *Engine) openOperation(ctx context.Context, sig models.SignalRecord, bar *models.PriceRecord, ts int64) error {
	inv := e.Investor

	if inv.DrawdownActive || inv.Halted {
		e.rejectOpen(ts, sig, models.MotiveInvestorHaltedDrawdown)
		return nil
	}
	if !validations.LimitsInvestor(inv) {
		e.rejectOpen(ts, sig, models.MotiveInvestorLimits)
		return nil
	}
	if !validations.MaxOpen(len(e.openByID), inv) {
		e.rejectOpen(ts, sig, models.MotiveMaxOpen)
		return nil
	}

	leverage, ok := inv.ResolvedLeverage(sig.LeverageCalculated)
	if !ok {
		e.rejectOpen(ts, sig, models.MotiveZeroLeverage)
		return nil
	}

	amount := capital.Sizing(inv, e.Risk)
	if !validations.RiskAmount(amount, e.Risk) {
		e.rejectOpen(ts, sig, models.MotiveSizeOutOfRisk)
		return nil
	}

	execPrice := bar.Close
	if execPrice < 1e-12 {
		execPrice = 1e-12
	}
	qty := (amount * float64(leverage)) / execPrice
	commission := fees.Commission(execPrice, qty, inv.CommissionPct)
	totalDebit := amount + commission

	if !validations.CapitalAvailable(inv, totalDebit) {
		e.rejectOpen(ts, sig, models.MotiveInsufficientCapital)
		return nil
	}

	params, err := e.Strategies.Get(ctx, sig.StrategyID)
	if err != nil {
		return fmt.Errorf("strategy lookup failed: %w", err)
	}

	op := models.NewOperation()
	op.InvestorID = inv.ID
	op.StrategyID = sig.StrategyID
	op.SignalID = sig.ID
	op.Ticker = sig.Ticker
	op.Side = sig.Side
	op.EntryPrice = execPrice
	op.TakeProfit = sig.TakeProfitPrice
	op.StopLoss = sig.StopLossPrice
	op.Quantity = qty
	op.Leverage = leverage
	op.InvestedCapital = amount
	op.BlockedCapital = amount
	op.AccumulatedCommissions = commission
	op.TimestampOpen = ts
	op.OpeningBarID = bar.BarID
	op.MultSLAssigned = sig.MultSLAssigned
	op.MultTPAssigned = sig.MultTPAssigned
	op.UpdateExtremes(execPrice, execPrice)
	_ = params // loaded to validate existence; cascade re-fetches per bar

	capitalBefore := inv.CurrentCapital
	id, err := e.Operations.InsertOperation(ctx, op, inv.CurrentCapital-totalDebit, inv.CurrentCapital-totalDebit)
	if err != nil {
		e.markPersistenceError(ctx, "insert_operation", op, ts, err)
		return nil
	}
	op.ID = id

	capital.Debit(inv, totalDebit)
	inv.OperationsToday++

	e.openByID[op.ID] = op
	e.openByKey[openKey{Ticker: op.Ticker, Side: op.Side}] = op
	e.Tracker.RecordOpen(op)

	e.Journal.Log(models.Event{
		Type:          models.EventOpen,
		Timestamp:     ts,
		InvestorID:    inv.ID,
		SignalID:      sig.ID,
		OperationID:   op.ID,
		Ticker:        op.Ticker,
		StrategyID:    op.StrategyID,
		Quantity:      op.Quantity,
		SL:            op.StopLoss,
		TP:            op.TakeProfit,
		OpeningBarID:  op.OpeningBarID,
		SignalPrice:   sig.SignalPrice,
		CapitalBefore: capitalBefore,
		CapitalAfter:  inv.CurrentCapital,
	})
	return nil
}

// applyDCA implements the DCA path: route spec.md §4.6's apply_dca, log
// the result, and persist the exposure update.
func (e *Engine) applyDCA(ctx context.Context, op *models.Operation, sig models.SignalRecord, bar *models.PriceRecord, ts int64) error {
	inv := e.Investor

	req := dca.Request{
		BasePrice:        bar.Close,
		BaseAmount:       capital.Sizing(inv, e.Risk),
		EntrySlippagePct: inv.SlippageOpenPct,
		CommissionPct:    inv.CommissionPct,
	}

	result, rej := dca.Apply(op, inv, e.Risk, req)
	if rej != nil {
		e.rejectDCA(ts, sig, op, rej.Motive)
		return nil
	}

	if err := e.Operations.UpdateExposure(ctx, op); err != nil {
		e.markPersistenceError(ctx, "update_operation_exposure", op, ts, err)
		return nil
	}

	e.Tracker.RecordDCA(op, result.QtyExtra, result.NewEntry)

	e.Journal.Log(models.Event{
		Type:        models.EventDCA,
		Timestamp:   ts,
		InvestorID:  inv.ID,
		SignalID:    sig.ID,
		OperationID: op.ID,
		Ticker:      op.Ticker,
		StrategyID:  op.StrategyID,
		Quantity:    op.Quantity,
		SL:          op.StopLoss,
		TP:          op.TakeProfit,
		SignalPrice: sig.SignalPrice,
	})
	return nil
}

// finalize marks every still-open operation to market and persists the
// investor's final capital. Skipped entirely when desynchronized.
func (e *Engine) finalize(ctx context.Context, closePrices map[string]float64) error {
	inv := e.Investor

	for _, op := range e.openByID {
		price, ok := closePrices[op.Ticker]
		if !ok {
			continue
		}
		pnl := op.GrossPnL(price, op.Quantity)

		e.Journal.Log(models.Event{
			Type:        models.EventUnrealizedPnL,
			InvestorID:  inv.ID,
			OperationID: op.ID,
			Ticker:      op.Ticker,
			StrategyID:  op.StrategyID,
			Resultado:   pnl,
		})

		if err := e.Operations.UpdateUnrealizedPnL(ctx, op, pnl); err != nil {
			e.markPersistenceError(ctx, "update_unrealized_pyg", op, 0, err)
			return nil
		}
	}

	e.Journal.Log(models.Event{
		Type:          models.EventInvestorFinalization,
		InvestorID:    inv.ID,
		CapitalAfter:  inv.CurrentCapital,
		Resultado:     inv.RealizedPnLAccumulated,
	})

	if err := e.Investors.UpdateCapital(ctx, inv); err != nil {
		e.markPersistenceError(ctx, "update_investor_capital", nil, 0, err)
	}
	return nil
}

func (e *Engine) markPersistenceError(ctx context.Context, op string, operation *models.Operation, ts int64, cause error) {
	e.Investor.MarkDesynchronized()

	var opID int64
	if operation != nil {
		opID = operation.ID
	}

	e.Journal.Log(models.Event{
		Type:        models.EventErrorPersistence,
		Timestamp:   ts,
		InvestorID:  e.Investor.ID,
		OperationID: opID,
		Detail: map[string]interface{}{
			"operation": op,
			"error":     cause.Error(),
		},
	})
}
