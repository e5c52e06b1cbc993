// Package events carries the lifecycle notifications of the import pipeline
// to external observers. The engine emits through a Sink; the Dispatcher
// queues and fans events out to any number of registered observers without
// letting a slow one block the run.
package events
