package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversInOrder(t *testing.T) {
	dispatcher := NewDispatcher(16)
	recorder := NewRecorderSink()
	dispatcher.Register(recorder)

	kinds := []Kind{BulkImportStarted, Importing, Synchronizing, Synchronized, Saved, Imported, BulkImportCompleted}
	for _, kind := range kinds {
		dispatcher.Notify(Event{Kind: kind, At: time.Now()})
	}
	dispatcher.Close()

	assert.Equal(t, kinds, recorder.Kinds())
	assert.Zero(t, dispatcher.Dropped())
}

func TestDispatcherFansOutToAllSinks(t *testing.T) {
	dispatcher := NewDispatcher(16)
	first := NewRecorderSink()
	second := NewRecorderSink()
	dispatcher.Register(first)
	dispatcher.Register(second)

	dispatcher.Notify(Event{Kind: Importing})
	dispatcher.Close()

	require.Len(t, first.Events(), 1)
	require.Len(t, second.Events(), 1)
}

// blockingSink stalls until released, simulating a slow observer.
type blockingSink struct {
	release chan struct{}
}

func (b *blockingSink) Notify(Event) {
	<-b.release
}

func TestDispatcherDoesNotBlockOnSlowObserver(t *testing.T) {
	dispatcher := NewDispatcher(1)
	blocker := &blockingSink{release: make(chan struct{})}
	dispatcher.Register(blocker)

	done := make(chan struct{})
	go func() {
		defer close(done)
		// one event in flight, one in the buffer, the rest must be dropped
		for i := 0; i < 10; i++ {
			dispatcher.Notify(Event{Kind: Importing})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked on a slow observer")
	}

	close(blocker.release)
	dispatcher.Close()
	assert.Greater(t, dispatcher.Dropped(), 0)
}

func TestDispatcherNotifyAfterClose(t *testing.T) {
	dispatcher := NewDispatcher(4)
	recorder := NewRecorderSink()
	dispatcher.Register(recorder)

	dispatcher.Close()
	dispatcher.Notify(Event{Kind: Importing})

	assert.Empty(t, recorder.Events())
}

func TestMultiSink(t *testing.T) {
	first := NewRecorderSink()
	second := NewRecorderSink()

	MultiSink{first, second}.Notify(Event{Kind: Saved})

	assert.Len(t, first.Events(), 1)
	assert.Len(t, second.Events(), 1)
}
