package positions

import (
	"testing"

	"github.com/rs/zerolog"

	"backtest-engine/internal/models"
)

func TestRecordOpenThenLookup(t *testing.T) {
	tr := NewTracker(1, zerolog.Nop())
	op := &models.Operation{ID: 10, Ticker: "BTCUSDT", Side: models.LONG}
	tr.RecordOpen(op)

	id, ok := tr.Lookup("BTCUSDT", models.LONG)
	if !ok || id != 10 {
		t.Fatalf("expected lookup to find operation 10, got %d, %v", id, ok)
	}
	if tr.Count() != 1 {
		t.Fatalf("expected count 1, got %d", tr.Count())
	}
}

func TestRecordCloseClearsSlot(t *testing.T) {
	tr := NewTracker(1, zerolog.Nop())
	op := &models.Operation{ID: 10, Ticker: "BTCUSDT", Side: models.LONG}
	tr.RecordOpen(op)

	tr.RecordClose(op, models.MotiveTakeProfit, true)

	if _, ok := tr.Lookup("BTCUSDT", models.LONG); ok {
		t.Fatal("expected slot to be cleared after close")
	}
	if tr.Count() != 0 {
		t.Fatalf("expected count 0, got %d", tr.Count())
	}
}

func TestRecordCloseIgnoresStaleOwner(t *testing.T) {
	tr := NewTracker(1, zerolog.Nop())
	parent := &models.Operation{ID: 10, Ticker: "BTCUSDT", Side: models.LONG}
	child := &models.Operation{ID: 11, Ticker: "BTCUSDT", Side: models.LONG, ParentOperationID: 10}

	tr.RecordOpen(parent)
	tr.RecordChildOpen(child)

	// The slot now belongs to the child; closing the parent (already
	// superseded) must not clear the child's slot.
	tr.RecordClose(parent, models.MotivePartialSL, false)

	id, ok := tr.Lookup("BTCUSDT", models.LONG)
	if !ok || id != 11 {
		t.Fatalf("expected slot to still point at child 11, got %d, %v", id, ok)
	}
}

func TestRecordChildOpenReindexes(t *testing.T) {
	tr := NewTracker(1, zerolog.Nop())
	parent := &models.Operation{ID: 10, Ticker: "ETHUSDT", Side: models.SHORT}
	tr.RecordOpen(parent)

	child := &models.Operation{ID: 11, Ticker: "ETHUSDT", Side: models.SHORT, ParentOperationID: 10}
	tr.RecordChildOpen(child)

	id, ok := tr.Lookup("ETHUSDT", models.SHORT)
	if !ok || id != 11 {
		t.Fatalf("expected slot to point at child 11, got %d, %v", id, ok)
	}
	if tr.Count() != 1 {
		t.Fatalf("expected count 1 (re-indexed, not added), got %d", tr.Count())
	}
}

func TestRecordDCADoesNotMutateIndex(t *testing.T) {
	tr := NewTracker(1, zerolog.Nop())
	op := &models.Operation{ID: 10, Ticker: "BTCUSDT", Side: models.LONG}
	tr.RecordOpen(op)

	tr.RecordDCA(op, 1.5, 101.2)

	id, ok := tr.Lookup("BTCUSDT", models.LONG)
	if !ok || id != 10 {
		t.Fatalf("expected DCA to leave the slot pointed at 10, got %d, %v", id, ok)
	}
}
