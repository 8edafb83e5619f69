// Package timers holds the timer collection state: the Timer and State
// value types, the pure Reduce transition function, and the Store that
// applies transitions and notifies observers.
package timers
