package api

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"backtest-engine/internal/database"
	apievents "backtest-engine/internal/events"
	"backtest-engine/internal/models"
)

// broadcastingEvents implements simulator.EventPersistence, writing every
// journal entry to Postgres and then republishing it on the event bus so
// a control-plane websocket subscriber sees the run live.
type broadcastingEvents struct {
	db    *database.EventRepository
	bus   *apievents.EventBus
	runID string

	mu    sync.Mutex
	count int
}

func (e *broadcastingEvents) InsertEvent(ctx context.Context, ev models.Event) error {
	ev.RunID = e.runID

	err := e.db.InsertEvent(ctx, ev)

	e.mu.Lock()
	e.count++
	e.mu.Unlock()

	if e.bus != nil {
		e.bus.Publish(toBusEvent(ev))
	}

	return err
}

// toBusEvent maps the domain event onto the event bus's broadcast shape.
func toBusEvent(ev models.Event) apievents.Event {
	busType := apievents.EventType(ev.Type)
	switch ev.Type {
	case models.EventOpen, models.EventOpenChildPartial:
		busType = apievents.EventOperationOpened
	case models.EventDCA:
		busType = apievents.EventOperationDCA
	case models.EventClosePartial:
		busType = apievents.EventOperationPartial
	case models.EventCloseTotal:
		busType = apievents.EventOperationClosed
	case models.EventRejectionOpen, models.EventRejectionDCA:
		busType = apievents.EventSignalRejected
	case models.EventErrorPersistence:
		busType = apievents.EventPersistenceFailed
	case models.EventUnrealizedPnL:
		busType = apievents.EventUnrealizedPnL
	}

	return apievents.Event{
		Type:       busType,
		InvestorID: ev.InvestorID,
		Data: map[string]interface{}{
			"run_id":       ev.RunID,
			"ticker":       ev.Ticker,
			"timestamp":    ev.Timestamp,
			"operation_id": ev.OperationID,
			"motive":       ev.MotiveClose,
			"motive_no_op": ev.MotiveNoOperation,
			"result":       ev.Resultado,
		},
	}
}

// noopLogger returns a silent zerolog.Logger for positions trackers spun
// up by the control plane, which observes through the event bus instead.
func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}
