package models

// RiskConfig bounds how much capital a single operation (open or DCA add)
// may commit. It is immutable for the lifetime of a run.
type RiskConfig struct {
	RiskMaxPct float64
	SizeMin    float64
	SizeMax    float64
}
