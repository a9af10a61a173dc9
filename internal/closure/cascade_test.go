package closure

import (
	"math"
	"testing"

	"backtest-engine/internal/models"
)

func newLongOp(entry, tp, sl, qty float64) *models.Operation {
	op := models.NewOperation()
	op.Side = models.LONG
	op.EntryPrice = entry
	op.TakeProfit = tp
	op.StopLoss = sl
	op.Quantity = qty
	op.InvestedCapital = entry * qty
	op.UpdateExtremes(entry, entry)
	return op
}

func TestTakeProfitOnLong(t *testing.T) {
	op := newLongOp(100, 110, 90, 2)
	op.UpdateExtremes(115, 95)

	out := Evaluate(op, Bar{Open: 100, High: 115, Low: 95, Close: 112}, models.StrategyParams{}, Rates{})
	if out == nil {
		t.Fatal("expected TP to fire")
	}
	if out.Motive != models.MotiveTakeProfit {
		t.Fatalf("expected Take Profit motive, got %q", out.Motive)
	}
	if out.ExecPrice != 110 {
		t.Fatalf("expected exec at TP 110 with zero slippage, got %v", out.ExecPrice)
	}

	net := op.CloseTotal(out.ExecPrice, out.ExitCommission, 1)
	if net != 20 {
		t.Fatalf("expected net pnl 20, got %v", net)
	}
}

func TestPartialSLThenChildStopLoss(t *testing.T) {
	params := models.StrategyParams{
		MinAdvancePct:         2,
		PartialRetracePct:     50,
		PartialLiquidationPct: 50,
		MaxPartials:           1,
		EnablePartial:         true,
	}
	op := newLongOp(100, 110, 90, 2)

	// Bar 1: (100,101,95,95) — advance to 101, not min-advance, retro 5% < 50%.
	op.UpdateExtremes(101, 95)
	out := Evaluate(op, Bar{Open: 100, High: 101, Low: 95, Close: 95}, params, Rates{})
	if out != nil {
		t.Fatalf("expected no event on bar 1, got %+v", out)
	}

	// Bar 2: (95,96,50,55) — retro 50% from entry to low=50 -> 0.5, triggers partial.
	op.UpdateExtremes(96, 50)
	out = Evaluate(op, Bar{Open: 95, High: 96, Low: 50, Close: 55}, params, Rates{})
	if out == nil || out.Total {
		t.Fatalf("expected a partial event, got %+v", out)
	}
	if out.Motive != models.MotivePartialSL {
		t.Fatalf("expected partial SL motive, got %q", out.Motive)
	}
	if out.ExecPrice != 55 {
		t.Fatalf("expected exec at close 55, got %v", out.ExecPrice)
	}

	result := op.ClosePartialSpawnChild(out.ExecPrice, out.ExitCommission, 2, params.PartialLiquidationFrac())
	if result == nil {
		t.Fatal("expected a spawn result")
	}
	if result.QtyLiquidated != 1 {
		t.Fatalf("expected qty_liq 1, got %v", result.QtyLiquidated)
	}
	if result.PnLNet != -45 {
		t.Fatalf("expected pnl_partial_net -45, got %v", result.PnLNet)
	}
	if result.Child.Quantity != 1 || result.Child.InvestedCapital != 100 {
		t.Fatalf("unexpected child state: %+v", result.Child)
	}
	if result.Child.AllowsPartial {
		t.Fatal("child must not allow further partials")
	}
	if op.State != models.StateClosedPartial || op.Quantity != 0 {
		t.Fatalf("expected parent closed_partial with zero quantity, got %+v", op)
	}

	// Bar 3: child SL check. (55,60,50,52) — low 50 <= SL 90.
	child := result.Child
	child.UpdateExtremes(60, 50)
	out = Evaluate(child, Bar{Open: 55, High: 60, Low: 50, Close: 52}, params, Rates{})
	if out == nil || !out.Total || out.Motive != models.MotiveStopLoss {
		t.Fatalf("expected child total SL close, got %+v", out)
	}
	net := child.CloseTotal(out.ExecPrice, out.ExitCommission, 3)
	if net != -10 {
		t.Fatalf("expected child net pnl -10, got %v", net)
	}
}

func TestProfitProtectionRetracement(t *testing.T) {
	params := models.StrategyParams{
		MinAdvancePct:          2,
		ProtectionRetracePct:   50,
		EnableProfitProtection: true,
	}
	op := newLongOp(100, 200, 50, 1)
	op.UpdateExtremes(120, 100)

	out := Evaluate(op, Bar{Open: 115, High: 116, Low: 108, Close: 108}, params, Rates{})
	if out == nil || !out.Total {
		t.Fatalf("expected a total close, got %+v", out)
	}
	if out.Motive != models.MotiveProtectionFromMax {
		t.Fatalf("expected protection-from-max motive, got %q", out.Motive)
	}
	if out.ExecPrice != 108 {
		t.Fatalf("expected exec at close 108, got %v", out.ExecPrice)
	}
}

func TestRulePrecedenceTakeProfitBeatsStopLoss(t *testing.T) {
	op := newLongOp(100, 110, 90, 1)
	op.UpdateExtremes(115, 85)

	out := Evaluate(op, Bar{Open: 100, High: 115, Low: 85, Close: 100}, models.StrategyParams{}, Rates{})
	if out == nil || out.Motive != models.MotiveTakeProfit {
		t.Fatalf("expected TP to win precedence over SL, got %+v", out)
	}
}

func TestNoMatchReturnsNil(t *testing.T) {
	op := newLongOp(100, 200, 50, 1)
	op.UpdateExtremes(101, 99)

	out := Evaluate(op, Bar{Open: 100, High: 101, Low: 99, Close: 100}, models.StrategyParams{}, Rates{})
	if out != nil {
		t.Fatalf("expected no rule to fire, got %+v", out)
	}
}

func TestExtremeMonotonicity(t *testing.T) {
	op := models.NewOperation()
	if !math.IsInf(op.PriceMax, -1) || !math.IsInf(op.PriceMin, 1) {
		t.Fatal("expected extremes initialized to the never-observed sentinels")
	}

	op.UpdateExtremes(110, 95)
	preMax, preMin := op.PriceMax, op.PriceMin

	op.UpdateExtremes(105, 100)
	if op.PriceMax < preMax {
		t.Fatal("price_max must never decrease")
	}
	if op.PriceMin > preMin {
		t.Fatal("price_min must never increase")
	}
}
