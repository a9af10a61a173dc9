package dca

import (
	"math"
	"testing"

	"backtest-engine/internal/models"
)

func TestApplyWeightedAverageEntry(t *testing.T) {
	op := models.NewOperation()
	op.Side = models.LONG
	op.EntryPrice = 100
	op.Quantity = 2
	op.InvestedCapital = 200
	op.Leverage = 1

	inv := &models.Investor{CurrentCapital: 1000}
	risk := models.RiskConfig{SizeMax: 1000}

	// qty_extra = 100 * 1 / 90 = 10/9; new entry = (100*2 + 90*10/9) / (2 + 10/9) = 300 / (28/9) ≈ 96.4286.
	result, rej := Apply(op, inv, risk, Request{BasePrice: 90, BaseAmount: 100})
	if rej != nil {
		t.Fatalf("expected success, got rejection %v", rej.Motive)
	}
	if math.Abs(result.NewEntry-96.4286) > 0.01 {
		t.Fatalf("expected new entry ~96.4286, got %v", result.NewEntry)
	}
	if math.Abs(op.Quantity-(2+100.0/90)) > 1e-9 {
		t.Fatalf("expected quantity 2 + 10/9, got %v", op.Quantity)
	}
	if op.InvestedCapital != 300 {
		t.Fatalf("expected invested capital 300, got %v", op.InvestedCapital)
	}
	if inv.CurrentCapital != 900 {
		t.Fatalf("expected capital debited to 900, got %v", inv.CurrentCapital)
	}
}

func TestApplyRejectsOverCap(t *testing.T) {
	op := models.NewOperation()
	op.InvestedCapital = 450
	op.Leverage = 1
	inv := &models.Investor{CurrentCapital: 1000}
	risk := models.RiskConfig{SizeMax: 500}

	_, rej := Apply(op, inv, risk, Request{BasePrice: 100, BaseAmount: 100})
	if rej == nil || rej.Motive != models.MotiveDCACapLimit {
		t.Fatalf("expected dca cap rejection, got %+v", rej)
	}
}

func TestApplyRejectsInsufficientCapital(t *testing.T) {
	op := models.NewOperation()
	op.EntryPrice = 100
	op.Quantity = 1
	op.InvestedCapital = 100
	op.Leverage = 1
	inv := &models.Investor{CurrentCapital: 50}
	risk := models.RiskConfig{SizeMax: 1000}

	_, rej := Apply(op, inv, risk, Request{BasePrice: 100, BaseAmount: 100})
	if rej == nil || rej.Motive != models.MotiveDCANoCapital {
		t.Fatalf("expected no-capital rejection, got %+v", rej)
	}
}
