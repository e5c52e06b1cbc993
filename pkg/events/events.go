package events

import (
	"time"

	"github.com/tendant/ldap-sync/pkg/directory"
	"github.com/tendant/ldap-sync/pkg/users"
)

// Kind identifies one lifecycle notification of the import pipeline.
type Kind string

const (
	// Batch-level events
	BulkImportStarted        Kind = "bulk_import.started"
	BulkImportCompleted      Kind = "bulk_import.completed"
	BulkImportDeletedMissing Kind = "bulk_import.deleted_missing"

	// Per-object events, in emission order for a successful path
	Importing     Kind = "import.importing"
	Synchronizing Kind = "import.synchronizing"
	Synchronized  Kind = "import.synchronized"
	Saved         Kind = "import.saved"
	Imported      Kind = "import.imported"
	ImportFailed  Kind = "import.failed"
)

// Summary aggregates the counts of one batch run for batch-level events.
type Summary struct {
	Candidates     int
	Created        int
	Updated        int
	Restored       int
	SoftDeleted    int
	DeletedMissing int
	Failed         int
}

// Event is a fire-and-forget lifecycle notification. Only the fields relevant
// to the Kind are populated.
type Event struct {
	Kind    Kind
	At      time.Time
	Object  *directory.Object
	User    *users.User
	Deleted []users.User
	Summary *Summary
	Err     error
}

// Sink receives events. Implementations must not assume they can influence
// the pipeline; notification is one-directional.
type Sink interface {
	Notify(event Event)
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Notify(Event) {}

// MultiSink fans out synchronously to an ordered list of sinks.
type MultiSink []Sink

func (m MultiSink) Notify(event Event) {
	for _, sink := range m {
		sink.Notify(event)
	}
}
