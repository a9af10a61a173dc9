package capital

import (
	"testing"

	"backtest-engine/internal/models"
)

func TestSizingClampsIntoRiskBand(t *testing.T) {
	inv := &models.Investor{CurrentCapital: 10000}
	risk := models.RiskConfig{RiskMaxPct: 2, SizeMin: 100, SizeMax: 500}

	got := Sizing(inv, risk)
	if got != 200 {
		t.Fatalf("expected 200 (2%% of 10000), got %v", got)
	}
}

func TestSizingFloorsAtSizeMin(t *testing.T) {
	inv := &models.Investor{CurrentCapital: 1000}
	risk := models.RiskConfig{RiskMaxPct: 1, SizeMin: 100, SizeMax: 500}

	if got := Sizing(inv, risk); got != 100 {
		t.Fatalf("expected size_min floor 100, got %v", got)
	}
}

func TestSizingCappedByCurrentCapital(t *testing.T) {
	inv := &models.Investor{CurrentCapital: 50}
	risk := models.RiskConfig{RiskMaxPct: 50, SizeMin: 100, SizeMax: 500}

	if got := Sizing(inv, risk); got != 50 {
		t.Fatalf("expected capital cap 50, got %v", got)
	}
}

func TestDebitClampsToZero(t *testing.T) {
	inv := &models.Investor{CurrentCapital: 50}
	Debit(inv, 100)
	if inv.CurrentCapital != 0 {
		t.Fatalf("expected clamp to 0, got %v", inv.CurrentCapital)
	}
}

func TestCredit(t *testing.T) {
	inv := &models.Investor{CurrentCapital: 50}
	Credit(inv, 25)
	if inv.CurrentCapital != 75 {
		t.Fatalf("expected 75, got %v", inv.CurrentCapital)
	}
}
