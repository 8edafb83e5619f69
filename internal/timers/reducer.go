package timers

// Reduce returns the snapshot that results from applying a to s.
// It never modifies s. Unknown action types reset to InitialState.
func Reduce(s State, a Action) State {
	switch a.Type {
	case ActionAddTimer:
		timers := make([]Timer, len(s.Timers), len(s.Timers)+1)
		copy(timers, s.Timers)
		return State{
			IsRunning: true,
			Timers:    append(timers, a.Timer),
		}
	case ActionStopTimers:
		next := s.clone()
		next.IsRunning = false
		return next
	case ActionStartTimers:
		next := s.clone()
		next.IsRunning = true
		return next
	}
	return InitialState()
}
