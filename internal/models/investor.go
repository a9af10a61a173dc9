package models

// Investor is the per-run account: identity, capital, daily/concurrency
// caps, cost parameters, and the halt/drawdown flags the Simulator Core
// mutates. Exactly one Investor exists per simulation run; it is mutated
// only by the simulator loop.
type Investor struct {
	ID int64

	InitialCapital float64
	CurrentCapital float64

	OperationsToday    int
	MaxDailyOperations int
	MaxOpenOperations  int
	CurrentDay         int64 // ts // 1440, the last day boundary seen

	SlippageOpenPct  float64
	SlippageClosePct float64
	CommissionPct    float64

	DrawdownMaxPct float64
	DrawdownActive bool

	RealizedPnLAccumulated float64

	Halted         bool
	Desynchronized bool

	// Leverage policy: UseSignalParameters selects signal.LeverageCalculated;
	// otherwise InvestorLeverage is used, falling back to MaxLeverage, then 1.
	UseSignalParameters bool
	InvestorLeverage    int
	MaxLeverage         int
}

// ResetDailyIfChanged zeroes the daily operation counter when ts falls on
// a new day boundary (ts // 1440 differs from the last seen day).
func (inv *Investor) ResetDailyIfChanged(ts int64) {
	day := ts / 1440
	if day != inv.CurrentDay {
		inv.CurrentDay = day
		inv.OperationsToday = 0
	}
}

// RegisterRealizedPnL folds a realized P&L delta into the investor's
// accumulator and re-evaluates the drawdown trip.
func (inv *Investor) RegisterRealizedPnL(delta float64) {
	inv.RealizedPnLAccumulated += delta
	inv.CheckDrawdown()
}

// CheckDrawdown sets DrawdownActive once cumulative realized loss crosses
// the configured percentage of initial capital. It never clears the flag —
// a drawdown trip is terminal for the run's open-signal path.
func (inv *Investor) CheckDrawdown() {
	if inv.DrawdownActive || inv.DrawdownMaxPct <= 0 {
		return
	}
	if -inv.RealizedPnLAccumulated >= inv.InitialCapital*inv.DrawdownMaxPct/100 {
		inv.DrawdownActive = true
	}
}

// MarkDesynchronized flags a persistence failure as a hard, terminal halt.
func (inv *Investor) MarkDesynchronized() {
	inv.Desynchronized = true
	inv.Halted = true
}

// ResolvedLeverage applies the leverage-selection policy from spec §4.7
// step 4. ok is false when the signal path must reject with
// apalancamiento_cero (signal-leverage mode with a non-positive value).
func (inv *Investor) ResolvedLeverage(signalLeverage int) (leverage int, ok bool) {
	if inv.UseSignalParameters {
		if signalLeverage <= 0 {
			return 0, false
		}
		return signalLeverage, true
	}

	if inv.InvestorLeverage > 0 {
		return inv.InvestorLeverage, true
	}
	if inv.MaxLeverage > 0 {
		return inv.MaxLeverage, true
	}
	return 1, true
}
