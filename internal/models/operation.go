package models

import "math"

// OperationState is the lifecycle state of an Operation row.
type OperationState string

const (
	StateOpen          OperationState = "open"
	StateClosedTotal   OperationState = "closed_total"
	StateClosedPartial OperationState = "closed_partial"
)

// Operation is a single directional position: identity, pricing,
// extremes, lifecycle state, audit accumulators, and parent/child
// lineage. It is the unit the closure cascade and DCA merge-in operate
// on.
type Operation struct {
	ID         int64
	InvestorID int64
	StrategyID int64
	SignalID   int64
	Ticker     string
	Side       Side

	EntryPrice      float64
	TakeProfit      float64
	StopLoss        float64
	Quantity        float64
	Leverage        int
	InvestedCapital float64
	BlockedCapital  float64

	PriceMax float64
	PriceMin float64

	Open         bool
	State        OperationState
	PartialsDone int

	TimestampOpen      int64
	TimestampClose     int64
	LastExecClosePrice float64

	AccumulatedCommissions float64
	RealizedPnL            float64
	OpeningBarID           int64

	IsChild            bool
	ParentOperationID  int64
	AllowsPartial      bool

	MultSLAssigned float64
	MultTPAssigned float64

	PartialPreviouslyLiquidated bool

	// ExposureTouches counts insert (1) plus every DCA merge; supplements
	// the core's persisted row with the original's cnt_operaciones column.
	ExposureTouches int
}

// NewOperation constructs an open, partial-eligible parent operation with
// extremes initialized to "never observed".
func NewOperation() *Operation {
	op := &Operation{
		Open:            true,
		State:           StateOpen,
		AllowsPartial:   true,
		ExposureTouches: 1,
	}
	op.InitExtremes()
	return op
}

// InitExtremes resets price_max/price_min to the "never observed"
// sentinels (+/-Inf), per spec §3.
func (op *Operation) InitExtremes() {
	op.PriceMax = math.Inf(-1)
	op.PriceMin = math.Inf(1)
}

// UpdateExtremes folds one bar's (high, low) into the running extremes.
// Extreme monotonicity: PriceMax never decreases, PriceMin never
// increases.
func (op *Operation) UpdateExtremes(high, low float64) {
	if high > op.PriceMax {
		op.PriceMax = high
	}
	if low < op.PriceMin {
		op.PriceMin = low
	}
}

// PersistedPriceMax returns PriceMax with the "never observed" sentinel
// mapped to EntryPrice, matching the persistence layer's treatment of the
// ±Inf extremes (spec §9 "Extreme initialization").
func (op *Operation) PersistedPriceMax() float64 {
	if math.IsInf(op.PriceMax, -1) {
		return op.EntryPrice
	}
	return op.PriceMax
}

// PersistedPriceMin is the PriceMin analogue of PersistedPriceMax.
func (op *Operation) PersistedPriceMin() float64 {
	if math.IsInf(op.PriceMin, 1) {
		return op.EntryPrice
	}
	return op.PriceMin
}

// MinAdvanceReached reports whether the favorable excursion has crossed
// the strategy's minimum-advance threshold.
func (op *Operation) MinAdvanceReached(params StrategyParams) bool {
	frac := params.MinAdvanceFrac()
	if op.Side == LONG {
		return op.PriceMax >= op.EntryPrice*(1+frac)
	}
	return op.PriceMin <= op.EntryPrice*(1-frac)
}

// AnyAdvance reports whether any favorable excursion was observed at all.
func (op *Operation) AnyAdvance() bool {
	if op.Side == LONG {
		return op.PriceMax > op.EntryPrice
	}
	return op.PriceMin < op.EntryPrice
}

// NoAdvance is the negation of AnyAdvance.
func (op *Operation) NoAdvance() bool {
	return !op.AnyAdvance()
}

// RetracementFromEntry measures the adverse move back toward (or past)
// the entry price, as a fraction of entry.
func (op *Operation) RetracementFromEntry(low, high float64) float64 {
	if op.Side == LONG {
		return (op.EntryPrice - low) / op.EntryPrice
	}
	return (high - op.EntryPrice) / op.EntryPrice
}

// RetracementProtectionRatio measures how much of the run-up from entry
// to the current extreme has been given back by this bar's adverse side.
// Zero when no favorable excursion has occurred yet.
func (op *Operation) RetracementProtectionRatio(low, high float64) float64 {
	if op.Side == LONG {
		if op.PriceMax <= op.EntryPrice {
			return 0
		}
		return (op.PriceMax - low) / (op.PriceMax - op.EntryPrice)
	}
	if op.PriceMin >= op.EntryPrice {
		return 0
	}
	return (high - op.PriceMin) / (op.EntryPrice - op.PriceMin)
}

// GrossPnL is the undiscounted P&L of closing quantity qty at execPrice.
func (op *Operation) GrossPnL(execPrice, qty float64) float64 {
	if op.Side == LONG {
		return (execPrice - op.EntryPrice) * qty
	}
	return (op.EntryPrice - execPrice) * qty
}

// CloseTotal closes the entire remaining quantity, folding the net P&L
// into RealizedPnL and zeroing the position. Returns the net P&L of this
// closure.
func (op *Operation) CloseTotal(execPrice, exitCommission float64, ts int64) float64 {
	gross := op.GrossPnL(execPrice, op.Quantity)
	net := gross - exitCommission

	op.RealizedPnL += net
	op.AccumulatedCommissions += exitCommission
	op.Quantity = 0
	op.Open = false
	op.State = StateClosedTotal
	op.TimestampClose = ts
	op.LastExecClosePrice = execPrice

	return net
}

// PartialCloseResult is the settlement information the closure cascade
// needs to credit capital and log the child-opening event after a
// partial liquidation.
type PartialCloseResult struct {
	QtyLiquidated float64
	PnLNet        float64
	CapitalLiq    float64
	Child         *Operation
}

// ClosePartialSpawnChild liquidates fractionLiq of the current quantity,
// closes the parent (quantity -> 0, state closed_partial), and returns a
// child operation carrying the remainder. Returns nil if there is nothing
// to liquidate (qty_liq <= 0).
func (op *Operation) ClosePartialSpawnChild(execPrice, exitCommission float64, ts int64, fractionLiq float64) *PartialCloseResult {
	currentQty := op.Quantity
	qtyLiq := currentQty * fractionLiq
	if qtyLiq <= 0 {
		return nil
	}

	gross := op.GrossPnL(execPrice, qtyLiq)
	pnlNet := gross - exitCommission

	capitalLiq := op.InvestedCapital * (qtyLiq / currentQty)
	capitalRemaining := op.InvestedCapital - capitalLiq

	child := &Operation{
		InvestorID:      op.InvestorID,
		StrategyID:      op.StrategyID,
		SignalID:        op.SignalID,
		Ticker:          op.Ticker,
		Side:            op.Side,
		EntryPrice:      op.EntryPrice,
		TakeProfit:      op.TakeProfit,
		StopLoss:        op.StopLoss,
		Quantity:        currentQty - qtyLiq,
		Leverage:        op.Leverage,
		InvestedCapital: capitalRemaining,
		BlockedCapital:  capitalRemaining,
		PriceMax:        op.PriceMax,
		PriceMin:        op.PriceMin,
		Open:            true,
		State:           StateOpen,
		TimestampOpen:   op.TimestampOpen,
		OpeningBarID:    op.OpeningBarID,
		IsChild:         true,
		ParentOperationID: op.ID,
		AllowsPartial:   false,
		MultSLAssigned:  op.MultSLAssigned,
		MultTPAssigned:  op.MultTPAssigned,
		ExposureTouches: 1,
	}

	op.RealizedPnL += pnlNet
	op.AccumulatedCommissions += exitCommission
	op.Quantity = 0
	op.Open = false
	op.State = StateClosedPartial
	op.PartialsDone++
	op.PartialPreviouslyLiquidated = true
	op.TimestampClose = ts
	op.LastExecClosePrice = execPrice

	return &PartialCloseResult{
		QtyLiquidated: qtyLiq,
		PnLNet:        pnlNet,
		CapitalLiq:    capitalLiq,
		Child:         child,
	}
}
