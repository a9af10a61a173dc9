// Package journal implements the synchronous, append-only event sink
// the simulator logs every decision and state mutation through.
package journal

import "backtest-engine/internal/models"

// PersistFunc is called once per logged event. Its error is swallowed by
// the Journal — persistence-callback failures must never interrupt the
// simulation loop. The simulator's own write path for operations and
// capital rows has an independent, non-swallowing failure handling
// (mark_persistence_error), wired by the caller, not by this package.
type PersistFunc func(models.Event) error

// Journal accumulates events in memory and forwards each one to a
// persistence callback exactly once.
type Journal struct {
	events  []models.Event
	persist PersistFunc
}

// New constructs a Journal. persist may be nil, in which case events are
// only kept in memory.
func New(persist PersistFunc) *Journal {
	return &Journal{persist: persist}
}

// Log appends ev to the in-memory journal and invokes the persistence
// callback. Any error the callback returns is discarded.
func (j *Journal) Log(ev models.Event) {
	j.events = append(j.events, ev)
	if j.persist == nil {
		return
	}
	_ = j.persist(ev)
}

// Events returns the full in-memory event history, in emission order.
func (j *Journal) Events() []models.Event {
	return j.events
}
