// Package positions keeps a (ticker, side) -> open operation index that
// mirrors the one the simulator routes signals against, and emits zerolog
// spans for open/DCA/close transitions. The index here is purely
// observational — the Simulator Core routes through its own authoritative
// map; nothing in this package gates a decision.
package positions

import (
	"sync"

	"github.com/rs/zerolog"

	"backtest-engine/internal/models"
)

// Key identifies an open-position slot by ticker and side.
type Key struct {
	Ticker string
	Side   models.Side
}

// Tracker indexes operation ids by (ticker, side) and traces lifecycle
// transitions through a zerolog logger.
type Tracker struct {
	mu     sync.RWMutex
	index  map[Key]int64
	logger zerolog.Logger
}

// NewTracker constructs a Tracker bound to investorID for log context.
func NewTracker(investorID int64, logger zerolog.Logger) *Tracker {
	return &Tracker{
		index:  make(map[Key]int64),
		logger: logger.With().Int64("investor_id", investorID).Logger(),
	}
}

// Lookup returns the operation id open for (ticker, side), if any.
func (t *Tracker) Lookup(ticker string, side models.Side) (int64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.index[Key{Ticker: ticker, Side: side}]
	return id, ok
}

// RecordOpen indexes a newly opened operation and emits an info span.
func (t *Tracker) RecordOpen(op *models.Operation) {
	t.mu.Lock()
	t.index[Key{Ticker: op.Ticker, Side: op.Side}] = op.ID
	t.mu.Unlock()

	t.logger.Info().
		Int64("operation_id", op.ID).
		Str("ticker", op.Ticker).
		Str("side", op.Side.String()).
		Float64("entry_price", op.EntryPrice).
		Float64("quantity", op.Quantity).
		Msg("operation opened")
}

// RecordDCA traces a merge-in against the already-indexed operation.
func (t *Tracker) RecordDCA(op *models.Operation, qtyExtra, newEntry float64) {
	t.logger.Info().
		Int64("operation_id", op.ID).
		Str("ticker", op.Ticker).
		Float64("qty_extra", qtyExtra).
		Float64("new_entry", newEntry).
		Msg("operation dca applied")
}

// RecordClose removes the (ticker, side) slot — unless a child is
// carrying it forward — and emits a close span.
func (t *Tracker) RecordClose(op *models.Operation, motive string, total bool) {
	t.mu.Lock()
	key := Key{Ticker: op.Ticker, Side: op.Side}
	if id, ok := t.index[key]; ok && id == op.ID {
		delete(t.index, key)
	}
	t.mu.Unlock()

	t.logger.Info().
		Int64("operation_id", op.ID).
		Str("ticker", op.Ticker).
		Bool("total", total).
		Str("motive", motive).
		Msg("operation closed")
}

// RecordChildOpen re-indexes the (ticker, side) slot onto the child
// operation spawned by a partial liquidation.
func (t *Tracker) RecordChildOpen(child *models.Operation) {
	t.mu.Lock()
	t.index[Key{Ticker: child.Ticker, Side: child.Side}] = child.ID
	t.mu.Unlock()

	t.logger.Debug().
		Int64("operation_id", child.ID).
		Int64("parent_operation_id", child.ParentOperationID).
		Str("ticker", child.Ticker).
		Msg("child operation opened from partial liquidation")
}

// Count returns the number of indexed open positions.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.index)
}
