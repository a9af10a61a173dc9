package journal

import (
	"errors"
	"testing"

	"backtest-engine/internal/models"
)

func TestLogAppendsAndCallsPersist(t *testing.T) {
	var persisted []models.Event
	j := New(func(ev models.Event) error {
		persisted = append(persisted, ev)
		return nil
	})

	j.Log(models.Event{Type: models.EventOpen, InvestorID: 1})
	j.Log(models.Event{Type: models.EventCloseTotal, InvestorID: 1})

	if len(j.Events()) != 2 {
		t.Fatalf("expected 2 in-memory events, got %d", len(j.Events()))
	}
	if len(persisted) != 2 {
		t.Fatalf("expected 2 persisted events, got %d", len(persisted))
	}
}

func TestLogSwallowsPersistErrors(t *testing.T) {
	j := New(func(ev models.Event) error {
		return errors.New("write failed")
	})

	j.Log(models.Event{Type: models.EventOpen})

	if len(j.Events()) != 1 {
		t.Fatal("expected the event to remain in the in-memory journal despite the persist error")
	}
}

func TestLogWithNilPersist(t *testing.T) {
	j := New(nil)
	j.Log(models.Event{Type: models.EventOpen})
	if len(j.Events()) != 1 {
		t.Fatal("expected in-memory append even with no persist callback")
	}
}
