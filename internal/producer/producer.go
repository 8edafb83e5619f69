// Package producer turns raw name/duration input into timers on a store.
package producer

import "timerlist/internal/timers"

// Field names read from submitted input.
const (
	FieldName     = "name"
	FieldDuration = "duration"
)

// Clearer is the input source a submission came from. It is told to reset
// its fields once the timer has been added.
type Clearer interface {
	Clear()
}

// ClearFunc adapts a function to Clearer.
type ClearFunc func()

// Clear calls f.
func (f ClearFunc) Clear() { f() }

// Producer submits timer entries to a store.
type Producer struct {
	store *timers.Store
}

// New creates a producer for store. It panics with timers.ErrNilStore when
// store has not been constructed.
func New(store *timers.Store) *Producer {
	timers.MustBeReady(store)
	return &Producer{store: store}
}

// Submit copies the name and duration fields of data into a Timer, adds it
// to the store and then clears src. Missing fields are taken as empty and
// nothing is trimmed or validated. src may be nil.
func (p *Producer) Submit(data map[string]string, src Clearer) timers.State {
	t := timers.Timer{
		Name:     data[FieldName],
		Duration: data[FieldDuration],
	}
	state := p.store.AddTimer(t)
	if src != nil {
		src.Clear()
	}
	return state
}
