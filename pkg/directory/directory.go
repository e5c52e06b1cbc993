package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrObjectNotFound is returned when a lookup by identifier matches no
// directory entry. It is a valid create-path outcome, not a query failure.
var ErrObjectNotFound = errors.New("directory object not found")

// QueryError indicates the directory itself could not be queried: the server
// is unreachable, the bind failed, or the filter is malformed. It is fatal to
// an import run.
type QueryError struct {
	Op     string
	Filter string
	Err    error
}

func (e *QueryError) Error() string {
	if e.Filter != "" {
		return fmt.Sprintf("directory query failed: %s (filter %q): %v", e.Op, e.Filter, e.Err)
	}
	return fmt.Sprintf("directory query failed: %s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Object is an immutable snapshot of one directory entry taken for a single
// import pass.
type Object struct {
	// DN is the distinguished name of the entry
	DN string

	// RDN is the leading relative distinguished name (e.g. "cn=John Doe")
	RDN string

	// ObjectGUID is the directory-assigned unique identifier. uuid.Nil when
	// the entry carries no objectGUID attribute.
	ObjectGUID uuid.UUID

	// Attributes maps attribute name to its values
	Attributes map[string][]string

	// Enabled reports whether the account is active in the directory
	// (userAccountControl ACCOUNTDISABLE bit clear for Active Directory)
	Enabled bool
}

// GetAttribute returns the first value of the named attribute.
// Attribute names are matched case-insensitively, as in LDAP.
func (o *Object) GetAttribute(name string) (string, bool) {
	values := o.GetAttributeValues(name)
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// GetAttributeValues returns all values of the named attribute.
func (o *Object) GetAttributeValues(name string) []string {
	if values, ok := o.Attributes[name]; ok {
		return values
	}
	for attr, values := range o.Attributes {
		if strings.EqualFold(attr, name) {
			return values
		}
	}
	return nil
}

// HasGUID reports whether the entry carries a directory unique identifier.
func (o *Object) HasGUID() bool {
	return o.ObjectGUID != uuid.Nil
}

// Directory is the object source an import run reads from.
//
// FindByIdentifier locates at most one entry whose username attribute (or
// userPrincipalName) equals value, returning ErrObjectNotFound when absent.
// Search returns the ordered, finite set of entries matching filter; an empty
// result is valid and is not an error.
type Directory interface {
	FindByIdentifier(ctx context.Context, value string) (*Object, error)
	Search(ctx context.Context, filter string, attributes []string) ([]Object, error)
}

// FirstRDN extracts the leading relative distinguished name from a DN.
func FirstRDN(dn string) string {
	if i := strings.Index(dn, ","); i >= 0 {
		return strings.TrimSpace(dn[:i])
	}
	return dn
}
