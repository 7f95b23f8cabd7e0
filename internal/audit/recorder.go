package audit

import (
	"context"
	"sync"
)

// Recorder is an in-memory sink for tests.
type Recorder struct {
	mu      sync.Mutex
	entries []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) LogInformation(ctx context.Context, eventType, auditType, title, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, NewEvent(eventType, auditType, title, message, CorrelationIDFromContext(ctx)))
}

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.entries))
	copy(out, r.entries)
	return out
}
