package validations

import (
	"testing"

	"backtest-engine/internal/models"
)

func TestLimitsInvestor(t *testing.T) {
	inv := &models.Investor{OperationsToday: 3, MaxDailyOperations: 5}
	if !LimitsInvestor(inv) {
		t.Fatal("expected true under the daily cap")
	}
	inv.OperationsToday = 5
	if LimitsInvestor(inv) {
		t.Fatal("expected false at the daily cap")
	}
}

func TestMaxOpen(t *testing.T) {
	inv := &models.Investor{MaxOpenOperations: 2}
	if !MaxOpen(1, inv) {
		t.Fatal("expected true below the cap")
	}
	if MaxOpen(2, inv) {
		t.Fatal("expected false at the cap")
	}
}

func TestRiskAmount(t *testing.T) {
	risk := models.RiskConfig{SizeMin: 100, SizeMax: 500}
	if !RiskAmount(200, risk) {
		t.Fatal("expected 200 within band")
	}
	if RiskAmount(50, risk) {
		t.Fatal("expected 50 below band to fail")
	}
	if RiskAmount(600, risk) {
		t.Fatal("expected 600 above band to fail")
	}
}

func TestCapitalAvailable(t *testing.T) {
	inv := &models.Investor{CurrentCapital: 100}
	if !CapitalAvailable(inv, 100) {
		t.Fatal("expected exact match to pass")
	}
	if CapitalAvailable(inv, 100.01) {
		t.Fatal("expected shortfall to fail")
	}
}

func TestDCAOpCap(t *testing.T) {
	risk := models.RiskConfig{SizeMax: 500}
	if !DCAOpCap(400, 100, risk) {
		t.Fatal("expected 400+100<=500 to pass")
	}
	if DCAOpCap(400, 200, risk) {
		t.Fatal("expected 400+200>500 to fail")
	}
}
