package models

// StrategyParams are the five named percentages and behavior flags that
// parameterize the closure-rule cascade for one strategy id. Loaded
// on-demand and cached by internal/stratcache.
type StrategyParams struct {
	ID int64

	// MinAdvancePct is the minimum favorable move (as % of entry) required
	// before the profit-protection and partial-SL gates consider the
	// position to have "advanced".
	MinAdvancePct float64

	// ProtectionRetracePct gates rule 4 (profit protection): the fraction
	// of the max-to-entry run-up that may retrace before closing.
	ProtectionRetracePct float64

	// PartialRetracePct gates rule 2 (partial SL): the retracement-from-
	// entry fraction that triggers a partial liquidation.
	PartialRetracePct float64

	// PartialLiquidationPct is the fraction of the open quantity a
	// triggered partial liquidates.
	PartialLiquidationPct float64

	// NoAdvanceRetracePct gates rule 5: the retracement-from-entry
	// fraction that triggers a close when no favorable move ever occurred.
	NoAdvanceRetracePct float64

	MaxPartials int

	EnableProfitProtection          bool
	EnablePartial                   bool
	EnableRetracementWithoutAdvance bool
}

// MinAdvanceFrac returns MinAdvancePct as a fraction of 1.
func (p StrategyParams) MinAdvanceFrac() float64 { return p.MinAdvancePct / 100 }

// ProtectionRetraceFrac returns ProtectionRetracePct as a fraction of 1.
func (p StrategyParams) ProtectionRetraceFrac() float64 { return p.ProtectionRetracePct / 100 }

// PartialRetraceFrac returns PartialRetracePct as a fraction of 1.
func (p StrategyParams) PartialRetraceFrac() float64 { return p.PartialRetracePct / 100 }

// PartialLiquidationFrac returns PartialLiquidationPct as a fraction of 1.
func (p StrategyParams) PartialLiquidationFrac() float64 { return p.PartialLiquidationPct / 100 }

// NoAdvanceRetraceFrac returns NoAdvanceRetracePct as a fraction of 1.
func (p StrategyParams) NoAdvanceRetraceFrac() float64 { return p.NoAdvanceRetracePct / 100 }
