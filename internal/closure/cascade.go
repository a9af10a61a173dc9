// Package closure implements the fixed-precedence closure-rule cascade:
// take-profit, partial stop-loss, total stop-loss, profit-protection
// retracement, and retracement-without-advance. Exactly one rule, at
// most, fires per bar per operation.
package closure

import (
	"backtest-engine/internal/fees"
	"backtest-engine/internal/models"
)

// Bar is the one-minute OHLC quadruple the cascade is evaluated against.
type Bar struct {
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// Outcome is the single event the cascade produced, if any. The caller
// settles it against the operation via CloseTotal or
// ClosePartialSpawnChild — the cascade itself never mutates state.
type Outcome struct {
	Motive string

	// Total is true for a full close (quantity -> 0, no child). False
	// means a partial liquidation, settled via
	// Operation.ClosePartialSpawnChild with the strategy's
	// PartialLiquidationFrac.
	Total          bool
	ExecPrice      float64
	ExitCommission float64
}

// Rates bundles the slippage/commission percentages the cascade needs;
// these come from the investor, not the strategy.
type Rates struct {
	CloseSlippagePct float64
	CommissionPct    float64
}

// Evaluate runs the fixed-precedence cascade against one bar for one
// open operation. Returns nil if no rule matched. Callers must not
// invoke this against a closed operation or a halted engine.
func Evaluate(op *models.Operation, bar Bar, params models.StrategyParams, rates Rates) *Outcome {
	if out := evalTakeProfit(op, bar, rates); out != nil {
		return out
	}
	if out := evalPartialSL(op, bar, params, rates); out != nil {
		return out
	}
	if out := evalStopLoss(op, bar, rates); out != nil {
		return out
	}
	if out := evalProfitProtection(op, bar, params, rates); out != nil {
		return out
	}
	if out := evalRetracementWithoutAdvance(op, bar, params, rates); out != nil {
		return out
	}
	return nil
}

func evalTakeProfit(op *models.Operation, bar Bar, rates Rates) *Outcome {
	hit := (op.Side == models.LONG && bar.High >= op.TakeProfit) ||
		(op.Side == models.SHORT && bar.Low <= op.TakeProfit)
	if !hit {
		return nil
	}

	execPrice := fees.ApplySlippage(op.TakeProfit, op.Side, rates.CloseSlippagePct, fees.DirectionExit)
	commission := fees.Commission(execPrice, op.Quantity, rates.CommissionPct)

	return &Outcome{
		Motive:         models.MotiveTakeProfit,
		Total:          true,
		ExecPrice:      execPrice,
		ExitCommission: commission,
	}
}

func evalPartialSL(op *models.Operation, bar Bar, params models.StrategyParams, rates Rates) *Outcome {
	eligible := !op.IsChild && op.AllowsPartial && params.EnablePartial &&
		op.AnyAdvance() && !op.MinAdvanceReached(params) &&
		op.PartialsDone < params.MaxPartials
	if !eligible {
		return nil
	}

	retro := op.RetracementFromEntry(bar.Low, bar.High)
	if retro < params.PartialRetraceFrac() {
		return nil
	}

	execPrice := fees.ApplySlippage(bar.Close, op.Side, rates.CloseSlippagePct, fees.DirectionExit)
	commission := fees.Commission(execPrice, op.Quantity*params.PartialLiquidationFrac(), rates.CommissionPct)

	return &Outcome{
		Motive:         models.MotivePartialSL,
		Total:          false,
		ExecPrice:      execPrice,
		ExitCommission: commission,
	}
}

func evalStopLoss(op *models.Operation, bar Bar, rates Rates) *Outcome {
	hit := (op.Side == models.LONG && bar.Low <= op.StopLoss) ||
		(op.Side == models.SHORT && bar.High >= op.StopLoss)
	if !hit {
		return nil
	}

	execPrice := fees.ApplySlippage(op.StopLoss, op.Side, rates.CloseSlippagePct, fees.DirectionExit)
	commission := fees.Commission(execPrice, op.Quantity, rates.CommissionPct)

	return &Outcome{
		Motive:         models.MotiveStopLoss,
		Total:          true,
		ExecPrice:      execPrice,
		ExitCommission: commission,
	}
}

func evalProfitProtection(op *models.Operation, bar Bar, params models.StrategyParams, rates Rates) *Outcome {
	if !(op.MinAdvanceReached(params) && params.EnableProfitProtection) {
		return nil
	}

	ratio := op.RetracementProtectionRatio(bar.Low, bar.High)
	if ratio < params.ProtectionRetraceFrac() {
		return nil
	}

	motive := models.MotiveProtectionFromMax
	if op.Side == models.SHORT {
		motive = models.MotiveProtectionFromMin
	}

	execPrice := fees.ApplySlippage(bar.Close, op.Side, rates.CloseSlippagePct, fees.DirectionExit)
	commission := fees.Commission(execPrice, op.Quantity, rates.CommissionPct)

	return &Outcome{
		Motive:         motive,
		Total:          true,
		ExecPrice:      execPrice,
		ExitCommission: commission,
	}
}

func evalRetracementWithoutAdvance(op *models.Operation, bar Bar, params models.StrategyParams, rates Rates) *Outcome {
	eligible := op.NoAdvance() && params.EnableRetracementWithoutAdvance && op.AllowsPartial
	if !eligible {
		return nil
	}

	retro := op.RetracementFromEntry(bar.Low, bar.High)
	if retro < params.NoAdvanceRetraceFrac() {
		return nil
	}

	execPrice := fees.ApplySlippage(bar.Close, op.Side, rates.CloseSlippagePct, fees.DirectionExit)
	commission := fees.Commission(execPrice, op.Quantity, rates.CommissionPct)

	return &Outcome{
		Motive:         models.MotiveRetracementWithoutAdv,
		Total:          true,
		ExecPrice:      execPrice,
		ExitCommission: commission,
	}
}
