package events

import "sync"

// RecorderSink captures every event it receives, for tests and dry-run
// inspection.
type RecorderSink struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorderSink creates an empty recorder.
func NewRecorderSink() *RecorderSink {
	return &RecorderSink{}
}

// Notify implements Sink.
func (r *RecorderSink) Notify(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of everything recorded so far.
func (r *RecorderSink) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Kinds returns the recorded event kinds in order.
func (r *RecorderSink) Kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()

	kinds := make([]Kind, len(r.events))
	for i, event := range r.events {
		kinds[i] = event.Kind
	}
	return kinds
}

// Reset discards everything recorded so far.
func (r *RecorderSink) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
