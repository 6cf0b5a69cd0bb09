// Package reconciler collapses repeated emissions of the same assistant
// response into one event per message id.
//
// A streaming response is logged several times with growing partial usage.
// Each counter of an event is the maximum seen across its emissions, and the
// event keeps the day of the first emission seen, whatever later emissions
// say.
package reconciler

import (
	"time"

	"github.com/0xmhha/token-calendar/pkg/calendar"
	"github.com/0xmhha/token-calendar/pkg/parser"
)

// Event is the reconciled state of one message id.
type Event struct {
	// ID is the message id.
	ID string

	// Date is the day of the first measurement seen for ID. It never changes
	// after the event is created.
	Date calendar.Date

	// FirstSeen is the timestamp of that first measurement.
	FirstSeen time.Time

	// Usage holds the per-counter maximum over all measurements for ID.
	Usage parser.Usage

	// Emissions counts the measurements merged into the event.
	Emissions int
}

// Table maps message ids to events for one run. It is not safe for
// concurrent use; a run feeds it from a single goroutine.
type Table struct {
	zone   calendar.Zone
	index  map[string]int
	events []Event // first-seen order
}

// New creates an empty Table that buckets days in zone.
func New(zone calendar.Zone) *Table {
	return &Table{
		zone:  zone,
		index: make(map[string]int),
	}
}

// Add merges a measurement and reports whether it created a new event.
func (t *Table) Add(m parser.Measurement) bool {
	if i, ok := t.index[m.MessageID]; ok {
		ev := &t.events[i]
		ev.Usage = ev.Usage.Max(m.Usage)
		ev.Emissions++
		return false
	}

	t.index[m.MessageID] = len(t.events)
	t.events = append(t.events, Event{
		ID:        m.MessageID,
		Date:      t.zone.DateOf(m.Timestamp),
		FirstSeen: m.Timestamp,
		Usage:     m.Usage,
		Emissions: 1,
	})
	return true
}

// AddAll merges measurements in order and returns how many new events were
// created.
func (t *Table) AddAll(measurements []parser.Measurement) int {
	created := 0
	for _, m := range measurements {
		if t.Add(m) {
			created++
		}
	}
	return created
}

// Get returns the event for id.
func (t *Table) Get(id string) (Event, bool) {
	i, ok := t.index[id]
	if !ok {
		return Event{}, false
	}
	return t.events[i], true
}

// Events returns a copy of all events in first-seen order.
func (t *Table) Events() []Event {
	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

// Len returns the number of distinct message ids.
func (t *Table) Len() int {
	return len(t.events)
}

// Zone returns the zone used for day assignment.
func (t *Table) Zone() calendar.Zone {
	return t.zone
}
