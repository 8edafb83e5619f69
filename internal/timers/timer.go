package timers

import "time"

// Timer is a named duration entry. Duration is kept as the caller
// supplied it; its unit is left to the caller.
type Timer struct {
	Name     string `json:"name"`
	Duration string `json:"duration"`
}

// State is an immutable snapshot of the timer collection.
type State struct {
	IsRunning bool    `json:"isRunning"`
	Timers    []Timer `json:"timers"`
}

// InitialState returns the snapshot every store starts from.
func InitialState() State {
	return State{
		IsRunning: true,
		Timers:    []Timer{},
	}
}

// clone returns a copy of s whose Timers slice shares no memory with s.
func (s State) clone() State {
	timers := make([]Timer, len(s.Timers))
	copy(timers, s.Timers)
	return State{
		IsRunning: s.IsRunning,
		Timers:    timers,
	}
}

// ActionType identifies a state transition.
type ActionType string

const (
	ActionAddTimer    ActionType = "ADD_TIMER"
	ActionStartTimers ActionType = "START_TIMERS"
	ActionStopTimers  ActionType = "STOP_TIMERS"
)

// Action is a transition request. Timer is only read for ActionAddTimer.
type Action struct {
	Type  ActionType
	Timer Timer
}

// AddTimer builds the action that appends t and forces the set running.
func AddTimer(t Timer) Action {
	return Action{Type: ActionAddTimer, Timer: t}
}

// Start builds the action that sets the running flag.
func Start() Action {
	return Action{Type: ActionStartTimers}
}

// Stop builds the action that clears the running flag.
func Stop() Action {
	return Action{Type: ActionStopTimers}
}

// ChangeEvent is delivered to observers after every transition.
type ChangeEvent struct {
	Seq    uint64     `json:"seq"`
	Action ActionType `json:"action"`
	State  State      `json:"state"`
	At     time.Time  `json:"at"`
}
