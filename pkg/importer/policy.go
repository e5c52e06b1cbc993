package importer

import (
	"github.com/tendant/ldap-sync/pkg/directory"
	"github.com/tendant/ldap-sync/pkg/users"
)

// Action is the terminal outcome the lifecycle policy selects for one object.
type Action int

const (
	ActionCreate Action = iota
	ActionUpdate
	ActionSoftDelete
	ActionRestore
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionSoftDelete:
		return "soft-delete"
	case ActionRestore:
		return "restore"
	}
	return "unknown"
}

// Policy decides, per object, how the local record's lifecycle changes.
type Policy struct {
	// SoftDeleteDisabled soft-deletes records whose directory account is
	// disabled
	SoftDeleteDisabled bool

	// RestoreEnabled restores soft-deleted records whose directory account
	// is enabled again
	RestoreEnabled bool
}

// Decide maps (object state, existing record state) to a terminal action.
// existing is nil when identity resolution found no record. An already
// soft-deleted record of a still-disabled account falls through to
// ActionUpdate, which keeps re-runs idempotent.
func (p Policy) Decide(obj *directory.Object, existing *users.User) Action {
	if existing == nil {
		return ActionCreate
	}
	if !obj.Enabled && p.SoftDeleteDisabled && !existing.IsDeleted() {
		return ActionSoftDelete
	}
	if obj.Enabled && existing.IsDeleted() && p.RestoreEnabled {
		return ActionRestore
	}
	return ActionUpdate
}
