package importer

// DefaultFilter selects the user entries of an Active Directory subtree.
const DefaultFilter = "(&(objectClass=user)(!(objectClass=computer)))"

// Options configures one import run.
type Options struct {
	// Provider names the directory configuration this run belongs to; it is
	// recorded on created users as their domain when Domain is empty.
	Provider string

	// Domain recorded on created users
	Domain string

	// Filter overrides the search filter for full runs (default DefaultFilter)
	Filter string

	// Attributes maps directory attribute names to local record fields.
	// nil selects DefaultAttributeMap.
	Attributes map[string]string

	// SyncExisting links a local record that carries no directory identifier
	// to a directory object matching its username. Off, such a record is
	// reported as an identity conflict instead.
	SyncExisting bool

	// SoftDeleteDisabled soft-deletes local records whose directory account
	// is disabled.
	SoftDeleteDisabled bool

	// RestoreEnabled restores soft-deleted local records whose directory
	// account is enabled again.
	RestoreEnabled bool

	// DeleteMissing soft-deletes every directory-linked local record absent
	// from a full run's result set. Rejected for single-user runs.
	DeleteMissing bool
}

func (o Options) filter() string {
	if o.Filter == "" {
		return DefaultFilter
	}
	return o.Filter
}

func (o Options) domain() string {
	if o.Domain != "" {
		return o.Domain
	}
	return o.Provider
}

// DefaultAttributeMap maps the common Active Directory user attributes onto
// local record fields.
func DefaultAttributeMap() map[string]string {
	return map[string]string{
		"sAMAccountName":  "username",
		"mail":            "email",
		"cn":              "display_name",
		"givenName":       "first_name",
		"sn":              "last_name",
		"title":           "title",
		"telephoneNumber": "phone",
	}
}
