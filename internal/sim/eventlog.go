package sim

import (
	"sync"

	"github.com/google/uuid"

	"airtwin/internal/types"
)

// DefaultLogCapacity is the number of entries kept before the oldest is evicted.
const DefaultLogCapacity = 100

// EventLog is a bounded, most-recent-first log of operator-visible simulation events.
type EventLog struct {
	mu       sync.RWMutex
	entries  []types.LogEntry
	capacity int
	clock    types.Clock
}

// NewEventLog creates an empty log keeping at most capacity entries
// (DefaultLogCapacity when capacity is not positive).
func NewEventLog(capacity int, clock types.Clock) *EventLog {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	return &EventLog{
		entries:  make([]types.LogEntry, 0, capacity),
		capacity: capacity,
		clock:    clock,
	}
}

// Append records msg at the head of the log, evicting the oldest entry when full.
func (l *EventLog) Append(msg string) types.LogEntry {
	entry := types.LogEntry{
		ID:      uuid.NewString(),
		At:      l.clock.Now(),
		Message: msg,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == l.capacity {
		l.entries = l.entries[:l.capacity-1]
	}
	l.entries = append(l.entries, types.LogEntry{})
	copy(l.entries[1:], l.entries)
	l.entries[0] = entry
	return entry
}

// Entries returns a copy of the log, newest first.
func (l *EventLog) Entries() []types.LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]types.LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries held.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Clear removes every entry.
func (l *EventLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = l.entries[:0]
}
