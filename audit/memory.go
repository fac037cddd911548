package audit

import (
	"context"
	"sync"
)

// MemorySink keeps events in memory. Tests use it to assert what was
// recorded.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

var _ Sink = (*MemorySink)(nil)

// NewMemorySink creates an empty sink.
func NewMemorySink() *MemorySink { return &MemorySink{} }

// Record implements Sink.
func (s *MemorySink) Record(_ context.Context, e Event) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

// Events returns a copy of everything recorded.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// ByType returns the recorded events of type t.
func (s *MemorySink) ByType(t EventType) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Last returns the most recent event and false when nothing was recorded.
func (s *MemorySink) Last() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return Event{}, false
	}
	return s.events[len(s.events)-1], true
}

// Reset forgets all events.
func (s *MemorySink) Reset() {
	s.mu.Lock()
	s.events = nil
	s.mu.Unlock()
}
