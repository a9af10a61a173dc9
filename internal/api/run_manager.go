package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"backtest-engine/config"
	"backtest-engine/internal/cache"
	"backtest-engine/internal/database"
	"backtest-engine/internal/events"
	"backtest-engine/internal/models"
	"backtest-engine/internal/positions"
	"backtest-engine/internal/simulator"
	"backtest-engine/internal/stratcache"
)

// InvestorStatus is the per-investor slice of a run's status response.
type InvestorStatus struct {
	InvestorID     int64   `json:"investor_id"`
	Halted         bool    `json:"halted"`
	Desynchronized bool    `json:"desynchronized"`
	DrawdownActive bool    `json:"drawdown_active"`
	FinalCapital   float64 `json:"final_capital"`
	EventCount     int     `json:"event_count"`
}

// RunStatus is the full state of one control-plane-triggered run.
type RunStatus struct {
	ID         string           `json:"id"`
	StartTS    int64            `json:"start_ts"`
	EndTS      int64            `json:"end_ts"`
	State      string           `json:"state"` // running, completed, failed
	Error      string           `json:"error,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	Investors  []InvestorStatus `json:"investors"`
}

// RunManager drives one Simulator Core engine per active investor,
// sequentially, exactly as cmd/backtest does — the control plane is an
// additive trigger over the same per-investor loop, not a second
// simulation path.
type RunManager struct {
	db           *database.DB
	investorsDB  *database.InvestorRepository
	operationsDB *database.OperationRepository
	eventsDB     *database.EventRepository
	signalsDB    *database.SignalRepository
	pricesDB     *database.PriceRepository
	strategyDB   *database.StrategyRepository
	redis        *cache.CacheService
	eventBus     *events.EventBus
	sim          config.SimConfig

	mu   sync.RWMutex
	runs map[string]*RunStatus
}

// NewRunManager wires the repositories a run needs against one shared DB
// pool, plus the optional Redis-backed strategy cache and the event bus
// the websocket hub subscribes to.
func NewRunManager(db *database.DB, redis *cache.CacheService, bus *events.EventBus, sim config.SimConfig, baseUTC time.Time) *RunManager {
	return &RunManager{
		db:           db,
		investorsDB:  database.NewInvestorRepository(db),
		operationsDB: database.NewOperationRepository(db, baseUTC),
		eventsDB:     database.NewEventRepository(db, baseUTC),
		signalsDB:    database.NewSignalRepository(db, baseUTC),
		pricesDB:     database.NewPriceRepository(db),
		strategyDB:   database.NewStrategyRepository(db),
		redis:        redis,
		eventBus:     bus,
		sim:          sim,
		runs:         make(map[string]*RunStatus),
	}
}

// StartRun loads the active-investor roster and launches one sequential
// per-investor simulation over [startTS, endTS], in the background. It
// returns immediately with the run's initial (running) status.
func (m *RunManager) StartRun(ctx context.Context, startTS, endTS int64) (*RunStatus, error) {
	investors, risks, err := m.investorsDB.ActiveInvestors(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading active investors: %w", err)
	}

	runID := uuid.New().String()
	status := &RunStatus{
		ID:        runID,
		StartTS:   startTS,
		EndTS:     endTS,
		State:     "running",
		StartedAt: time.Now(),
	}
	for _, inv := range investors {
		status.Investors = append(status.Investors, InvestorStatus{InvestorID: inv.ID})
	}

	m.mu.Lock()
	m.runs[runID] = status
	m.mu.Unlock()

	go m.run(runID, investors, risks, startTS, endTS)

	return status, nil
}

// Status returns the current status of a run, or nil if unknown.
func (m *RunManager) Status(runID string) (*RunStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.runs[runID]
	return s, ok
}

func (m *RunManager) run(runID string, investors []*models.Investor, risks []models.RiskConfig, startTS, endTS int64) {
	ctx := context.Background()

	for i, inv := range investors {
		strategyCache := stratcache.New(m.redis, time.Duration(m.sim.StrategyCacheTTLSec)*time.Second, m.strategyDB)
		tracker := positions.NewTracker(inv.ID, noopLogger())
		evRepo := &broadcastingEvents{db: m.eventsDB, bus: m.eventBus, runID: runID}

		engine := simulator.NewEngine(
			inv, risks[i], runID,
			m.signalsDB, m.pricesDB, strategyCache,
			m.operationsDB, m.investorsDB, evRepo,
			tracker,
		)

		closes, err := m.pricesDB.ClosesAt(ctx, endTS)
		if err != nil {
			closes = map[string]float64{}
		}

		runErr := engine.Run(ctx, startTS, endTS, closes)

		m.mu.Lock()
		st := m.runs[runID]
		st.Investors[i] = InvestorStatus{
			InvestorID:     inv.ID,
			Halted:         inv.Halted,
			Desynchronized: inv.Desynchronized,
			DrawdownActive: inv.DrawdownActive,
			FinalCapital:   inv.CurrentCapital,
			EventCount:     evRepo.count,
		}
		if runErr != nil && st.Error == "" {
			st.Error = runErr.Error()
		}
		m.mu.Unlock()
	}

	m.mu.Lock()
	st := m.runs[runID]
	now := time.Now()
	st.FinishedAt = &now
	if st.Error != "" {
		st.State = "failed"
	} else {
		st.State = "completed"
	}
	m.mu.Unlock()
}
