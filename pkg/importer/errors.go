package importer

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrDeleteMissingSingleUser is returned when the delete-missing policy is
// combined with a single-user selection. Soft-deleting everything absent from
// the result set only makes sense for a full run.
var ErrDeleteMissingSingleUser = errors.New("delete-missing policy requires a full import run")

// ConfigurationError indicates a provider is not set up for synchronization.
// It is fatal and surfaces before any directory query runs.
type ConfigurationError struct {
	Provider string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("provider %q is not configured for synchronization: %s", e.Provider, e.Reason)
}

// AmbiguityError indicates a directory object matched two different local
// records through its unique identifier and its username. The object is
// skipped rather than risking misattaching either record.
type AmbiguityError struct {
	DN            string
	GUIDMatch     uuid.UUID
	UsernameMatch uuid.UUID
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("identity resolution ambiguous for %s: identifier matches record %s but username matches record %s",
		e.DN, e.GUIDMatch, e.UsernameMatch)
}
