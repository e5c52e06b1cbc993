package events

import (
	"log/slog"
	"sync"
)

const defaultBuffer = 256

// Dispatcher decouples the import pipeline from its observers: events are
// queued on a buffered channel and delivered in order by one background
// goroutine, so a slow sink never blocks the pipeline. When the buffer is
// full events are dropped (and counted) rather than stalling the run.
type Dispatcher struct {
	mu      sync.RWMutex
	sinks   []Sink
	closed  bool
	dropped int

	ch   chan Event
	done chan struct{}
}

// NewDispatcher creates a running dispatcher. buffer <= 0 selects the
// default queue depth.
func NewDispatcher(buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = defaultBuffer
	}

	d := &Dispatcher{
		ch:   make(chan Event, buffer),
		done: make(chan struct{}),
	}
	go d.run()
	return d
}

// Register adds a sink. Registration order is delivery order.
func (d *Dispatcher) Register(sink Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks = append(d.sinks, sink)
}

// Notify implements Sink. It never blocks on observers.
func (d *Dispatcher) Notify(event Event) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}

	select {
	case d.ch <- event:
		d.mu.Unlock()
	default:
		d.dropped++
		dropped := d.dropped
		d.mu.Unlock()
		slog.Warn("event dropped, observer queue full", "kind", event.Kind, "dropped", dropped)
	}
}

// Close drains the queue, delivers the remaining events, and stops the
// background goroutine. Notify calls after Close are ignored.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.done
		return
	}
	d.closed = true
	d.mu.Unlock()

	close(d.ch)
	<-d.done
}

// Dropped reports how many events were discarded due to a full queue.
func (d *Dispatcher) Dropped() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dropped
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for event := range d.ch {
		d.mu.RLock()
		sinks := make([]Sink, len(d.sinks))
		copy(sinks, d.sinks)
		d.mu.RUnlock()

		for _, sink := range sinks {
			sink.Notify(event)
		}
	}
}
