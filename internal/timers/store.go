package timers

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultHistoryCapacity  = 100
	defaultSubscriberBufCap = 100
)

// ErrNilStore reports a consumer wired without a store. It is a
// programming error and is raised as a panic.
var ErrNilStore = errors.New("timers: store is nil or not constructed with NewStore")

// Observer is called synchronously after each transition.
type Observer func(ChangeEvent)

// Store owns the single timer State and applies transitions one at a time.
type Store struct {
	ready bool

	// dispatchMu serializes transitions together with their notifications
	// so observers see events in Seq order.
	dispatchMu sync.Mutex

	mu     sync.RWMutex
	state  State
	seq    uint64 // Seq of the last applied transition

	obsMu     sync.RWMutex
	observers map[uint64]Observer
	nextObsID uint64

	subMu       sync.RWMutex
	subscribers map[string]chan ChangeEvent

	history *changeLog
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithHistory sets how many recent change events are retained.
func WithHistory(capacity int) Option {
	return func(s *Store) {
		if capacity > 0 {
			s.history = newChangeLog(capacity)
		}
	}
}

// WithClock overrides the clock used to stamp change events.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates a store holding InitialState.
func NewStore(opts ...Option) *Store {
	s := &Store{
		ready:       true,
		state:       InitialState(),
		observers:   make(map[uint64]Observer),
		subscribers: make(map[string]chan ChangeEvent),
		history:     newChangeLog(defaultHistoryCapacity),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MustBeReady panics with ErrNilStore unless s came from NewStore.
// Consumers call it from their constructors.
func MustBeReady(s *Store) {
	if s == nil || !s.ready {
		panic(ErrNilStore)
	}
}

// State returns the current snapshot.
func (s *Store) State() State {
	MustBeReady(s)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// IsRunning reports the running flag of the current snapshot.
func (s *Store) IsRunning() bool {
	MustBeReady(s)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsRunning
}

// Timers returns the timers of the current snapshot in insertion order.
func (s *Store) Timers() []Timer {
	return s.State().Timers
}

// History returns the retained change events with Seq greater than since,
// oldest first. History(0) returns everything retained.
func (s *Store) History(since uint64) []ChangeEvent {
	MustBeReady(s)
	return s.history.Since(since)
}

// AddTimer appends t and forces the set running.
func (s *Store) AddTimer(t Timer) State {
	return s.Dispatch(AddTimer(t))
}

// Start sets the running flag.
func (s *Store) Start() State {
	return s.Dispatch(Start())
}

// Stop clears the running flag.
func (s *Store) Stop() State {
	return s.Dispatch(Stop())
}

// Dispatch applies a, notifies every observer and subscriber, and returns
// the resulting snapshot. Observers must not call Dispatch themselves.
func (s *Store) Dispatch(a Action) State {
	MustBeReady(s)
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	s.state = Reduce(s.state, a)
	event := ChangeEvent{
		Seq:    s.seq + 1,
		Action: a.Type,
		State:  s.state.clone(),
		At:     s.now(),
	}
	s.seq = event.Seq
	s.mu.Unlock()

	s.history.Append(event)
	s.notify(event)
	s.fanOut(event)

	return event.State.clone()
}

// Observe registers fn and returns a function that unregisters it.
func (s *Store) Observe(fn Observer) (cancel func()) {
	MustBeReady(s)
	s.obsMu.Lock()
	s.nextObsID++
	id := s.nextObsID
	s.observers[id] = fn
	s.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.obsMu.Lock()
			delete(s.observers, id)
			s.obsMu.Unlock()
		})
	}
}

func (s *Store) notify(event ChangeEvent) {
	s.obsMu.RLock()
	ids := make([]uint64, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	s.obsMu.RUnlock()

	// Registration order.
	slices.Sort(ids)
	for _, id := range ids {
		s.obsMu.RLock()
		fn, ok := s.observers[id]
		s.obsMu.RUnlock()
		if ok {
			fn(cloneEvent(event))
		}
	}
}

// Subscribe creates a channel that receives every subsequent change event,
// together with the retained events newer than since. The history and the
// channel are contiguous: no event is missed or repeated between them. A
// subscriber that falls more than its buffer behind misses events.
func (s *Store) Subscribe(since uint64) (string, <-chan ChangeEvent, []ChangeEvent) {
	MustBeReady(s)
	// Hold off transitions so history and the channel line up.
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	subID := uuid.New().String()
	ch := make(chan ChangeEvent, defaultSubscriberBufCap)

	s.subMu.Lock()
	s.subscribers[subID] = ch
	s.subMu.Unlock()

	return subID, ch, s.history.Since(since)
}

// Unsubscribe removes a subscriber and closes its channel.
func (s *Store) Unsubscribe(subID string) {
	MustBeReady(s)
	s.subMu.Lock()
	if ch, exists := s.subscribers[subID]; exists {
		close(ch)
		delete(s.subscribers, subID)
	}
	s.subMu.Unlock()
}

// Close unsubscribes every subscriber.
func (s *Store) Close() {
	MustBeReady(s)
	s.subMu.Lock()
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
	s.subMu.Unlock()
}

func (s *Store) fanOut(event ChangeEvent) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	for _, ch := range s.subscribers {
		select {
		case ch <- cloneEvent(event):
		default:
			// Subscriber channel full, drop the event.
		}
	}
}

func cloneEvent(e ChangeEvent) ChangeEvent {
	e.State = e.State.clone()
	return e
}
