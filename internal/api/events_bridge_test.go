package api

import (
	"testing"

	apievents "backtest-engine/internal/events"
	"backtest-engine/internal/models"
)

func TestToBusEventMapsOpenVariants(t *testing.T) {
	for _, domainType := range []models.EventType{models.EventOpen, models.EventOpenChildPartial} {
		got := toBusEvent(models.Event{Type: domainType, InvestorID: 1})
		if got.Type != apievents.EventOperationOpened {
			t.Fatalf("%s: expected %s, got %s", domainType, apievents.EventOperationOpened, got.Type)
		}
	}
}

func TestToBusEventMapsCloseAndRejection(t *testing.T) {
	cases := []struct {
		domainType models.EventType
		want       apievents.EventType
	}{
		{models.EventDCA, apievents.EventOperationDCA},
		{models.EventClosePartial, apievents.EventOperationPartial},
		{models.EventCloseTotal, apievents.EventOperationClosed},
		{models.EventRejectionOpen, apievents.EventSignalRejected},
		{models.EventRejectionDCA, apievents.EventSignalRejected},
		{models.EventErrorPersistence, apievents.EventPersistenceFailed},
		{models.EventUnrealizedPnL, apievents.EventUnrealizedPnL},
	}

	for _, c := range cases {
		got := toBusEvent(models.Event{Type: c.domainType})
		if got.Type != c.want {
			t.Errorf("%s: expected %s, got %s", c.domainType, c.want, got.Type)
		}
	}
}

func TestToBusEventCarriesCorrelationFields(t *testing.T) {
	ev := models.Event{
		Type:        models.EventCloseTotal,
		InvestorID:  42,
		RunID:       "run-123",
		Ticker:      "BTCUSDT",
		Timestamp:   1000,
		OperationID: 7,
		MotiveClose: models.MotiveTakeProfit,
		Resultado:   15.5,
	}

	got := toBusEvent(ev)

	if got.InvestorID != 42 {
		t.Errorf("expected investor id 42, got %d", got.InvestorID)
	}
	if got.Data["run_id"] != "run-123" {
		t.Errorf("expected run_id to carry through, got %v", got.Data["run_id"])
	}
	if got.Data["ticker"] != "BTCUSDT" {
		t.Errorf("expected ticker to carry through, got %v", got.Data["ticker"])
	}
	if got.Data["motive"] != models.MotiveTakeProfit {
		t.Errorf("expected motive to carry through, got %v", got.Data["motive"])
	}
	if got.Data["result"] != 15.5 {
		t.Errorf("expected result to carry through, got %v", got.Data["result"])
	}
}

func TestToBusEventDefaultsToRawTypeForUnmappedKinds(t *testing.T) {
	got := toBusEvent(models.Event{Type: models.EventInvestorFinalization})
	if got.Type != apievents.EventType(models.EventInvestorFinalization) {
		t.Fatalf("expected the raw domain type to pass through unmapped, got %s", got.Type)
	}
}
