package models

// EventType tags an audit-log entry with the kind of decision or
// state mutation it records.
type EventType string

const (
	EventOpen                EventType = "apertura"
	EventOpenChildPartial     EventType = "apertura_hija_parcial"
	EventCloseTotal           EventType = "cierre_total"
	EventClosePartial         EventType = "cierre_parcial"
	EventDCA                  EventType = "dca"
	EventRejectionOpen        EventType = "rejection_open"
	EventRejectionDCA         EventType = "rejection_dca"
	EventErrorPersistence     EventType = "error_persistencia"
	EventUnrealizedPnL        EventType = "pnl_no_realizado"
	EventInvestorFinalization EventType = "finalizacion_inversionista"
)

// Rejection motives (spec §7).
const (
	MotiveInvestorHaltedDrawdown = "investor_halted_drawdown"
	MotiveInvestorLimits         = "limites_inversionista"
	MotiveMaxOpen                = "max_abiertas"
	MotiveZeroLeverage           = "apalancamiento_cero"
	MotiveSizeOutOfRisk          = "monto_fuera_riesgo"
	MotiveInsufficientCapital    = "capital_insuficiente"
	MotiveNoMinutePrice          = "sin_precio_minuto"
	MotiveInvalidMultipliers     = "multiplicadores_invalidos"

	MotiveDCACapLimit        = "limite_tamano_operacion"
	MotiveDCANoCapital       = "sin_capital"
	MotiveDCANoCapitalComm   = "sin_capital_comision"
)

// Closure motives (spec §4.5).
const (
	MotiveTakeProfit              = "Take Profit"
	MotivePartialSL               = "Liquidación parcial por SL"
	MotiveStopLoss                = "Stop Loss"
	MotiveProtectionFromMax       = "Retroceso desde máximo"
	MotiveProtectionFromMin       = "Retroceso desde mínimo"
	MotiveRetracementWithoutAdv   = "Retroceso desde entrada (sin avance)"
)

// Event is a tagged record emitted to the journal for every decision and
// state mutation the simulator makes. Detail carries type-specific,
// JSON-serializable context; the core does not interpret it further.
type Event struct {
	Type         EventType
	Timestamp    int64 // minute-ts
	InvestorID   int64
	SignalID     int64
	OperationID  int64
	Ticker       string
	StrategyID   int64

	Detail map[string]interface{}

	CapitalBefore float64
	CapitalAfter  float64

	MotiveNoOperation string
	Resultado         float64
	MotiveClose       string
	ClosePrice        float64

	Quantity float64
	SL       float64
	TP       float64

	ParentOperationID int64
	PriceMax          float64
	PriceMin          float64
	OpeningBarID      int64
	SignalPrice       float64

	RunID string
}
