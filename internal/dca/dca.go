// Package dca implements dollar-cost-averaging merge-in: adding margin
// to an already-open operation and recomputing its weighted-average
// entry price.
package dca

import (
	"backtest-engine/internal/capital"
	"backtest-engine/internal/fees"
	"backtest-engine/internal/models"
	"backtest-engine/internal/validations"
)

// Request bundles the inputs apply needs beyond the operation itself.
type Request struct {
	BasePrice     float64
	BaseAmount    float64
	EntrySlippagePct float64
	CommissionPct float64
}

// Result is returned on a successful merge-in.
type Result struct {
	QtyExtra    float64
	NewEntry    float64
	ExecPrice   float64
	Commission  float64
	TotalDebit  float64
}

// Rejection carries the motive when Apply declines to merge.
type Rejection struct {
	Motive string
}

func (r *Rejection) Error() string { return r.Motive }

// Apply validates and performs a DCA merge-in against op, mutating it in
// place and debiting inv on success. Returns a populated Result on
// success, or a non-nil *Rejection (never both) with the failure motive.
func Apply(op *models.Operation, inv *models.Investor, risk models.RiskConfig, req Request) (*Result, *Rejection) {
	if !validations.DCAOpCap(op.InvestedCapital, req.BaseAmount, risk) {
		return nil, &Rejection{Motive: models.MotiveDCACapLimit}
	}

	execPrice := fees.ApplySlippage(req.BasePrice, op.Side, req.EntrySlippagePct, fees.DirectionEntry)
	qtyExtra := (req.BaseAmount * float64(op.Leverage)) / execPrice

	if !validations.CapitalAvailable(inv, req.BaseAmount) {
		return nil, &Rejection{Motive: models.MotiveDCANoCapital}
	}

	commission := fees.Commission(execPrice, qtyExtra, req.CommissionPct)
	totalDebit := req.BaseAmount + commission

	if !validations.CapitalAvailable(inv, totalDebit) {
		return nil, &Rejection{Motive: models.MotiveDCANoCapitalComm}
	}

	newEntry := (op.EntryPrice*op.Quantity + execPrice*qtyExtra) / (op.Quantity + qtyExtra)

	op.EntryPrice = newEntry
	op.Quantity += qtyExtra
	op.InvestedCapital += req.BaseAmount
	op.BlockedCapital += req.BaseAmount
	op.AccumulatedCommissions += commission
	op.ExposureTouches++

	capital.Debit(inv, totalDebit)

	return &Result{
		QtyExtra:   qtyExtra,
		NewEntry:   newEntry,
		ExecPrice:  execPrice,
		Commission: commission,
		TotalDebit: totalDebit,
	}, nil
}
