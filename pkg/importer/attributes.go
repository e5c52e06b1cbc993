package importer

import (
	"log/slog"
	"sort"

	"github.com/tendant/ldap-sync/pkg/directory"
	"github.com/tendant/ldap-sync/pkg/users"
)

// fieldSetters maps local record field names to their in-memory mutation.
// Identity and lifecycle fields (id, object_guid, timestamps, deleted_at) are
// deliberately absent: the engine owns those.
var fieldSetters = map[string]func(*users.User, string){
	"username":     func(u *users.User, v string) { u.Username = v },
	"domain":       func(u *users.User, v string) { u.Domain = v },
	"email":        func(u *users.User, v string) { u.Email = v },
	"display_name": func(u *users.User, v string) { u.DisplayName = v },
	"first_name":   func(u *users.User, v string) { u.FirstName = v },
	"last_name":    func(u *users.User, v string) { u.LastName = v },
	"title":        func(u *users.User, v string) { u.Title = v },
	"phone":        func(u *users.User, v string) { u.Phone = v },
}

// Synchronizer copies directory attributes onto a local record in memory,
// according to a configurable attribute mapping. It has no side effects
// beyond the record mutation and is deterministic for a given object.
type Synchronizer struct {
	mapping map[string]string
}

// NewSynchronizer creates a synchronizer; a nil mapping selects
// DefaultAttributeMap.
func NewSynchronizer(mapping map[string]string) *Synchronizer {
	if mapping == nil {
		mapping = DefaultAttributeMap()
	}
	return &Synchronizer{mapping: mapping}
}

// Apply maps the object's attributes onto user. Missing attributes and
// unmapped target fields are skipped.
func (s *Synchronizer) Apply(obj *directory.Object, user *users.User) {
	attrs := make([]string, 0, len(s.mapping))
	for attr := range s.mapping {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)

	for _, attr := range attrs {
		value, ok := obj.GetAttribute(attr)
		if !ok {
			continue
		}

		field := s.mapping[attr]
		setter, ok := fieldSetters[field]
		if !ok {
			slog.Debug("attribute mapping targets unknown field, skipping",
				"attribute", attr, "field", field)
			continue
		}
		setter(user, value)
	}
}

// UsernameAttribute returns the directory attribute mapped to the local
// username field, falling back to the directory default when the mapping
// does not cover it.
func (s *Synchronizer) UsernameAttribute() string {
	for attr, field := range s.mapping {
		if field == "username" {
			return attr
		}
	}
	return directory.DefaultUsernameAttribute
}

// DirectoryAttributes returns the attribute selection an import run should
// request, sorted for stable queries.
func (s *Synchronizer) DirectoryAttributes() []string {
	attrs := make([]string, 0, len(s.mapping))
	for attr := range s.mapping {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)
	return attrs
}
