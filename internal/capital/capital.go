// Package capital implements investor capital bookkeeping: position
// sizing from risk parameters, and debit/credit mutations.
package capital

import "backtest-engine/internal/models"

// Sizing computes the amount to risk on a new position: the investor's
// risk percentage of current capital, clamped into [size_min, size_max],
// then capped so it never exceeds current_capital.
func Sizing(inv *models.Investor, risk models.RiskConfig) float64 {
	amount := inv.CurrentCapital * risk.RiskMaxPct / 100

	if amount < risk.SizeMin {
		amount = risk.SizeMin
	}
	if amount > risk.SizeMax {
		amount = risk.SizeMax
	}
	if amount > inv.CurrentCapital {
		amount = inv.CurrentCapital
	}
	return amount
}

// Debit subtracts amount from the investor's current capital, clamping
// at zero.
func Debit(inv *models.Investor, amount float64) {
	inv.CurrentCapital -= amount
	if inv.CurrentCapital < 0 {
		inv.CurrentCapital = 0
	}
}

// Credit adds amount to the investor's current capital.
func Credit(inv *models.Investor, amount float64) {
	inv.CurrentCapital += amount
}
