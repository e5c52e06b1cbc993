package directory

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-ldap/ldap/v3"
)

const (
	attrObjectGUID         = "objectGUID"
	attrUserAccountControl = "userAccountControl"
	attrUserPrincipalName  = "userPrincipalName"

	// accountDisabled is the ACCOUNTDISABLE bit of userAccountControl
	accountDisabled = 0x2

	// DefaultUsernameAttribute is the attribute used to locate entries by
	// username when none is configured.
	DefaultUsernameAttribute = "sAMAccountName"

	// DefaultPageSize bounds each page of a paged search.
	DefaultPageSize = 500
)

// Config holds the connection settings for an LDAP directory.
type Config struct {
	// URL is the server address, e.g. "ldap://dc01.example.com:389"
	URL string

	// BaseDN is the search base for all queries
	BaseDN string

	// BindDN and BindPassword authenticate the service connection
	BindDN       string
	BindPassword string

	// UsernameAttribute locates entries by username (default sAMAccountName)
	UsernameAttribute string

	// PageSize bounds each page of a paged search (default 500)
	PageSize uint32
}

func (c Config) usernameAttribute() string {
	if c.UsernameAttribute == "" {
		return DefaultUsernameAttribute
	}
	return c.UsernameAttribute
}

func (c Config) pageSize() uint32 {
	if c.PageSize == 0 {
		return DefaultPageSize
	}
	return c.PageSize
}

// LDAPDirectory implements Directory against a live LDAP server using a
// single bound connection. Connection pooling is left to the deployment;
// import runs are strictly sequential.
type LDAPDirectory struct {
	config Config
	conn   *ldap.Conn
}

// Open dials the configured server and binds the service account.
func Open(config Config) (*LDAPDirectory, error) {
	conn, err := ldap.DialURL(config.URL)
	if err != nil {
		return nil, &QueryError{Op: "dial " + config.URL, Err: err}
	}

	if err := conn.Bind(config.BindDN, config.BindPassword); err != nil {
		conn.Close()
		return nil, &QueryError{Op: "bind " + config.BindDN, Err: err}
	}

	slog.Info("connected to directory", "url", config.URL, "baseDN", config.BaseDN)

	return &LDAPDirectory{config: config, conn: conn}, nil
}

// Close releases the underlying connection.
func (d *LDAPDirectory) Close() {
	if d.conn != nil {
		d.conn.Close()
	}
}

// FindByIdentifier locates a single entry whose username attribute or
// userPrincipalName equals value.
func (d *LDAPDirectory) FindByIdentifier(ctx context.Context, value string) (*Object, error) {
	filter := Or(
		Eq(d.config.usernameAttribute(), value),
		Eq(attrUserPrincipalName, value),
	).String()

	objects, err := d.Search(ctx, filter, nil)
	if err != nil {
		return nil, err
	}
	if len(objects) == 0 {
		return nil, ErrObjectNotFound
	}
	if len(objects) > 1 {
		slog.Warn("identifier matched multiple directory entries, using first",
			"identifier", value, "matches", len(objects))
	}

	return &objects[0], nil
}

// Search runs a paged subtree search under the base DN and returns every
// matching entry as an Object snapshot. objectGUID and userAccountControl are
// always requested in addition to the caller's attribute selection; a nil or
// empty selection requests all attributes.
func (d *LDAPDirectory) Search(ctx context.Context, filter string, attributes []string) ([]Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	selection := attributes
	if len(selection) > 0 {
		selection = append([]string{attrObjectGUID, attrUserAccountControl}, selection...)
	}

	request := ldap.NewSearchRequest(
		d.config.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, 0, false,
		filter,
		selection,
		nil,
	)

	result, err := d.conn.SearchWithPaging(request, d.config.pageSize())
	if err != nil {
		return nil, &QueryError{Op: "search " + d.config.BaseDN, Filter: filter, Err: err}
	}

	objects := make([]Object, 0, len(result.Entries))
	for _, entry := range result.Entries {
		objects = append(objects, entryToObject(entry))
	}

	slog.Debug("directory search completed", "filter", filter, "entries", len(objects))

	return objects, nil
}

// entryToObject converts an LDAP entry into an immutable Object snapshot.
func entryToObject(entry *ldap.Entry) Object {
	obj := Object{
		DN:         entry.DN,
		RDN:        FirstRDN(entry.DN),
		Attributes: make(map[string][]string, len(entry.Attributes)),
		Enabled:    true,
	}

	for _, attr := range entry.Attributes {
		obj.Attributes[attr.Name] = attr.Values
	}

	if raw := entry.GetRawAttributeValue(attrObjectGUID); len(raw) > 0 {
		guid, err := GUIDFromBytes(raw)
		if err != nil {
			slog.Warn("failed to decode objectGUID", "dn", entry.DN, "err", err)
		} else {
			obj.ObjectGUID = guid
		}
	}

	if uac := entry.GetAttributeValue(attrUserAccountControl); uac != "" {
		flags, err := strconv.ParseInt(uac, 10, 64)
		if err != nil {
			slog.Warn("failed to parse userAccountControl", "dn", entry.DN, "value", uac, "err", err)
		} else {
			obj.Enabled = flags&accountDisabled == 0
		}
	}

	return obj
}
