package timers

import "sync"

// changeLog keeps the most recent change events in a fixed-size circular
// buffer. Events are appended with consecutive Seq numbers, so the slot of
// any retained Seq follows from the newest one.
type changeLog struct {
	mu    sync.RWMutex
	buf   []ChangeEvent
	next  int // slot for the next append
	count int
}

func newChangeLog(capacity int) *changeLog {
	return &changeLog{buf: make([]ChangeEvent, capacity)}
}

// Append records e, overwriting the oldest event once full. e.Seq must be
// one more than the previously appended Seq.
func (l *changeLog) Append(e ChangeEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf[l.next] = e
	l.next = (l.next + 1) % len(l.buf)
	if l.count < len(l.buf) {
		l.count++
	}
}

// Since returns retained events with Seq greater than seq, oldest first.
// Events older than the retention window are silently missing; every event
// carries the full state so a reader only needs the last one to catch up.
func (l *changeLog) Since(seq uint64) []ChangeEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.count == 0 {
		return []ChangeEvent{}
	}
	size := len(l.buf)
	newest := l.buf[(l.next-1+size)%size].Seq
	if seq >= newest {
		return []ChangeEvent{}
	}

	n := l.count
	if missing := newest - seq; missing < uint64(n) {
		n = int(missing)
	}

	result := make([]ChangeEvent, n)
	start := (l.next - n + size) % size
	for i := range result {
		result[i] = cloneEvent(l.buf[(start+i)%size])
	}
	return result
}
