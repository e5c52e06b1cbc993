package importer

import (
	"github.com/tendant/ldap-sync/pkg/events"
	"github.com/tendant/ldap-sync/pkg/users"
)

// Failure records one object the run could not import.
type Failure struct {
	DN         string
	Identifier string
	Err        error
}

// Result aggregates one batch run. It is returned to the caller and carried
// on batch-level events; it is never persisted.
type Result struct {
	// Candidates is the size of the object set the run iterated
	Candidates int

	Created     int
	Updated     int
	Restored    int
	SoftDeleted int

	// DeletedMissing lists the records soft-deleted by the delete-missing
	// pass, when that policy ran
	DeletedMissing []users.User

	Failures []Failure
}

// Succeeded counts the objects that reached a terminal outcome.
func (r *Result) Succeeded() int {
	return r.Created + r.Updated + r.Restored + r.SoftDeleted
}

// Failed counts the isolated per-object failures.
func (r *Result) Failed() int {
	return len(r.Failures)
}

func (r *Result) tally(action Action) {
	switch action {
	case ActionCreate:
		r.Created++
	case ActionUpdate:
		r.Updated++
	case ActionRestore:
		r.Restored++
	case ActionSoftDelete:
		r.SoftDeleted++
	}
}

// Summary converts the result into the event payload form.
func (r *Result) Summary() *events.Summary {
	return &events.Summary{
		Candidates:     r.Candidates,
		Created:        r.Created,
		Updated:        r.Updated,
		Restored:       r.Restored,
		SoftDeleted:    r.SoftDeleted,
		DeletedMissing: len(r.DeletedMissing),
		Failed:         len(r.Failures),
	}
}
