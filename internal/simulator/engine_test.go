package simulator

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"backtest-engine/internal/models"
	"backtest-engine/internal/positions"
)

type fakeSignals struct {
	byMinute map[int64][]models.SignalRecord
}

func (f *fakeSignals) SignalsByMinute(ctx context.Context, ts int64) ([]models.SignalRecord, error) {
	return f.byMinute[ts], nil
}

type priceKey struct {
	ticker string
	ts     int64
}

type fakePrices struct {
	bars map[priceKey]models.PriceRecord
}

func (f *fakePrices) Price(ctx context.Context, ticker string, ts int64) (*models.PriceRecord, error) {
	bar, ok := f.bars[priceKey{ticker, ts}]
	if !ok {
		return nil, nil
	}
	return &bar, nil
}

func (f *fakePrices) set(ticker string, ts int64, o, h, l, c float64) {
	if f.bars == nil {
		f.bars = make(map[priceKey]models.PriceRecord)
	}
	f.bars[priceKey{ticker, ts}] = models.PriceRecord{BarID: ts, Ticker: ticker, Timestamp: ts, Open: o, High: h, Low: l, Close: c}
}

type fakeStrategies struct {
	params map[int64]models.StrategyParams
}

func (f *fakeStrategies) Get(ctx context.Context, strategyID int64) (models.StrategyParams, error) {
	return f.params[strategyID], nil
}

type fakeOps struct {
	nextID  int64
	inserts []*models.Operation
	totalCloses []string
	partialCloses []int64
	exposureUpdates []int64
}

func (f *fakeOps) InsertOperation(ctx context.Context, op *models.Operation, investorTotalCapital, investorAvailableCapital float64) (int64, error) {
	f.nextID++
	op.ID = f.nextID
	f.inserts = append(f.inserts, op)
	return f.nextID, nil
}

func (f *fakeOps) UpdateTotalClose(ctx context.Context, op *models.Operation, motive string, closingBarID int64) error {
	f.totalCloses = append(f.totalCloses, motive)
	return nil
}

func (f *fakeOps) UpdatePartialClose(ctx context.Context, op *models.Operation, closingBarID int64) error {
	f.partialCloses = append(f.partialCloses, op.ID)
	return nil
}

func (f *fakeOps) UpdateExposure(ctx context.Context, op *models.Operation) error {
	f.exposureUpdates = append(f.exposureUpdates, op.ID)
	return nil
}

func (f *fakeOps) UpdateUnrealizedPnL(ctx context.Context, op *models.Operation, pnl float64) error {
	return nil
}

type fakeInvestors struct {
	capitals []float64
}

func (f *fakeInvestors) UpdateCapital(ctx context.Context, inv *models.Investor) error {
	f.capitals = append(f.capitals, inv.CurrentCapital)
	return nil
}

type fakeEvents struct {
	events []models.Event
}

func (f *fakeEvents) InsertEvent(ctx context.Context, ev models.Event) error {
	f.events = append(f.events, ev)
	return nil
}

func newTestEngine(inv *models.Investor, risk models.RiskConfig, signals *fakeSignals, prices *fakePrices, strategies *fakeStrategies) (*Engine, *fakeOps, *fakeInvestors, *fakeEvents) {
	ops := &fakeOps{}
	invRepo := &fakeInvestors{}
	evRepo := &fakeEvents{}
	tracker := positions.NewTracker(inv.ID, zerolog.Nop())

	e := NewEngine(inv, risk, "test-run", signals, prices, strategies, ops, invRepo, evRepo, tracker)
	return e, ops, invRepo, evRepo
}

// Scenario 1 from the backtest's testable-properties list: TP on LONG,
// first minute.
func TestScenarioTakeProfitOnLong(t *testing.T) {
	inv := &models.Investor{
		ID:                 1,
		CurrentCapital:     10000,
		MaxDailyOperations: 10,
		MaxOpenOperations:  5,
		InvestorLeverage:   1,
	}
	risk := models.RiskConfig{RiskMaxPct: 2, SizeMin: 100, SizeMax: 500}

	signals := &fakeSignals{byMinute: map[int64][]models.SignalRecord{
		0: {{ID: 1, StrategyID: 1, Ticker: "BTCUSDT", Timestamp: 0, Side: models.LONG,
			TakeProfitPrice: 110, StopLossPrice: 90, LeverageCalculated: 1,
			SignalPrice: 100, MultSLAssigned: 1, MultTPAssigned: 1}},
	}}

	prices := &fakePrices{}
	prices.set("BTCUSDT", 0, 100, 100, 100, 100)
	prices.set("BTCUSDT", 1, 112, 120, 108, 118)

	strategies := &fakeStrategies{params: map[int64]models.StrategyParams{1: {ID: 1}}}

	e, ops, invRepo, _ := newTestEngine(inv, risk, signals, prices, strategies)

	if err := e.Run(context.Background(), 0, 1, map[string]float64{"BTCUSDT": 118}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ops.inserts) != 1 {
		t.Fatalf("expected one operation inserted, got %d", len(ops.inserts))
	}
	if ops.inserts[0].Quantity != 2 {
		t.Fatalf("expected qty 2.0, got %v", ops.inserts[0].Quantity)
	}
	if len(ops.totalCloses) != 1 || ops.totalCloses[0] != models.MotiveTakeProfit {
		t.Fatalf("expected a single TP close, got %+v", ops.totalCloses)
	}
	if inv.CurrentCapital != 10020 {
		t.Fatalf("expected final capital 10020, got %v", inv.CurrentCapital)
	}
	if len(invRepo.capitals) != 1 || invRepo.capitals[0] != 10020 {
		t.Fatalf("expected capital persisted once at finalize, got %+v", invRepo.capitals)
	}
}

// Scenario 5, no-open-operation case: a signal with invalid multipliers
// and no open operation on the same ticker/side is rejected on the open
// path. The case with an existing open operation is not covered here.
func TestScenarioInvalidMultipliersRejection(t *testing.T) {
	inv := &models.Investor{ID: 1, CurrentCapital: 10000, MaxDailyOperations: 10, MaxOpenOperations: 5, InvestorLeverage: 1}
	risk := models.RiskConfig{RiskMaxPct: 2, SizeMin: 100, SizeMax: 500}

	signals := &fakeSignals{byMinute: map[int64][]models.SignalRecord{
		0: {{ID: 1, StrategyID: 1, Ticker: "ETHUSDT", Timestamp: 0, Side: models.LONG, MultSLAssigned: 0, MultTPAssigned: 1}},
	}}
	prices := &fakePrices{}
	strategies := &fakeStrategies{params: map[int64]models.StrategyParams{1: {ID: 1}}}

	e, ops, _, events := newTestEngine(inv, risk, signals, prices, strategies)
	if err := e.Run(context.Background(), 0, 0, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ops.inserts) != 0 {
		t.Fatal("expected no operation opened")
	}
	found := false
	for _, ev := range events.events {
		if ev.Type == models.EventRejectionOpen && ev.MotiveNoOperation == models.MotiveInvalidMultipliers {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a rejection_open event with multiplicadores_invalidos motive")
	}
}

// Scenario 6: drawdown trip halts further opens but finalize still runs.
func TestScenarioDrawdownHaltsButFinalizeRuns(t *testing.T) {
	inv := &models.Investor{
		ID: 1, CurrentCapital: 1000, InitialCapital: 1000,
		MaxDailyOperations: 10, MaxOpenOperations: 5, InvestorLeverage: 1,
		DrawdownMaxPct: 10,
	}
	risk := models.RiskConfig{RiskMaxPct: 50, SizeMin: 10, SizeMax: 1000}

	signals := &fakeSignals{byMinute: map[int64][]models.SignalRecord{
		0: {{ID: 1, StrategyID: 1, Ticker: "BTCUSDT", Timestamp: 0, Side: models.LONG,
			TakeProfitPrice: 1000, StopLossPrice: 50, LeverageCalculated: 1,
			SignalPrice: 100, MultSLAssigned: 1, MultTPAssigned: 1}},
		2: {{ID: 2, StrategyID: 1, Ticker: "BTCUSDT", Timestamp: 2, Side: models.SHORT,
			TakeProfitPrice: 1, StopLossPrice: 1000, LeverageCalculated: 1,
			SignalPrice: 100, MultSLAssigned: 1, MultTPAssigned: 1}},
	}}

	prices := &fakePrices{}
	prices.set("BTCUSDT", 0, 100, 100, 100, 100)
	prices.set("BTCUSDT", 1, 100, 100, 40, 45) // triggers SL (heavy loss) next minute
	prices.set("BTCUSDT", 2, 45, 45, 45, 45)

	strategies := &fakeStrategies{params: map[int64]models.StrategyParams{1: {ID: 1}}}

	e, _, invRepo, events := newTestEngine(inv, risk, signals, prices, strategies)
	if err := e.Run(context.Background(), 0, 2, map[string]float64{"BTCUSDT": 45}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !inv.DrawdownActive {
		t.Fatal("expected drawdown_active after the heavy loss")
	}
	if !inv.Halted {
		t.Fatal("expected halted after drawdown trip")
	}
	if inv.Desynchronized {
		t.Fatal("drawdown trip must not desynchronize the investor")
	}
	if len(invRepo.capitals) != 1 {
		t.Fatal("expected finalize to still persist capital despite the halt")
	}

	foundFinalization := false
	for _, ev := range events.events {
		if ev.Type == models.EventInvestorFinalization {
			foundFinalization = true
		}
	}
	if !foundFinalization {
		t.Fatal("expected a finalizacion_inversionista event")
	}
}
