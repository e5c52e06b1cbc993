package directory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// InMemoryDirectory is an in-process directory emulator for tests and local
// development. It implements Directory over a seeded set of entries and
// evaluates the filter subset the sync engine produces (and, equality,
// presence, or, not).
type InMemoryDirectory struct {
	mu                sync.RWMutex
	entries           []Object
	usernameAttribute string
}

// NewInMemoryDirectory creates an empty emulator matching usernames against
// sAMAccountName.
func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{usernameAttribute: DefaultUsernameAttribute}
}

// AddEntry seeds the emulator with one entry. The DN identifies the entry for
// later mutation; objectGUID may be uuid.Nil for entries without a directory
// identifier.
func (d *InMemoryDirectory) AddEntry(dn string, guid uuid.UUID, attributes map[string][]string, enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	attrs := make(map[string][]string, len(attributes))
	for name, values := range attributes {
		attrs[name] = append([]string(nil), values...)
	}

	d.entries = append(d.entries, Object{
		DN:         dn,
		RDN:        FirstRDN(dn),
		ObjectGUID: guid,
		Attributes: attrs,
		Enabled:    enabled,
	})
}

// SetEnabled toggles the account-status flag of the entry with the given DN.
func (d *InMemoryDirectory) SetEnabled(dn string, enabled bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.entries {
		if strings.EqualFold(d.entries[i].DN, dn) {
			d.entries[i].Enabled = enabled
			return true
		}
	}
	return false
}

// RemoveEntry deletes the entry with the given DN, emulating removal from the
// directory.
func (d *InMemoryDirectory) RemoveEntry(dn string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.entries {
		if strings.EqualFold(d.entries[i].DN, dn) {
			d.entries = append(d.entries[:i], d.entries[i+1:]...)
			return true
		}
	}
	return false
}

// FindByIdentifier implements Directory.
func (d *InMemoryDirectory) FindByIdentifier(ctx context.Context, value string) (*Object, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for i := range d.entries {
		entry := &d.entries[i]
		if matchesIdentifier(entry, d.usernameAttribute, value) {
			obj := cloneObject(entry)
			return &obj, nil
		}
	}
	return nil, ErrObjectNotFound
}

// Search implements Directory. The attribute selection is ignored; entries
// are returned with all attributes, as a permissive server would.
func (d *InMemoryDirectory) Search(ctx context.Context, filter string, attributes []string) ([]Object, error) {
	node, err := parseFilter(filter)
	if err != nil {
		return nil, &QueryError{Op: "search", Filter: filter, Err: err}
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var objects []Object
	for i := range d.entries {
		if node.matches(&d.entries[i]) {
			objects = append(objects, cloneObject(&d.entries[i]))
		}
	}
	return objects, nil
}

func matchesIdentifier(entry *Object, usernameAttribute, value string) bool {
	if v, ok := entry.GetAttribute(usernameAttribute); ok && strings.EqualFold(v, value) {
		return true
	}
	if v, ok := entry.GetAttribute(attrUserPrincipalName); ok && strings.EqualFold(v, value) {
		return true
	}
	return false
}

func cloneObject(entry *Object) Object {
	obj := *entry
	obj.Attributes = make(map[string][]string, len(entry.Attributes))
	for name, values := range entry.Attributes {
		obj.Attributes[name] = append([]string(nil), values...)
	}
	return obj
}

// filterNode is one node of a parsed search filter.
type filterNode struct {
	op       byte // '&', '|', '!' or 0 for a simple comparison
	children []*filterNode
	attr     string
	value    string // "*" means presence
}

func (n *filterNode) matches(entry *Object) bool {
	switch n.op {
	case '&':
		for _, child := range n.children {
			if !child.matches(entry) {
				return false
			}
		}
		return true
	case '|':
		for _, child := range n.children {
			if child.matches(entry) {
				return true
			}
		}
		return false
	case '!':
		return !n.children[0].matches(entry)
	}

	if strings.EqualFold(n.attr, "objectClass") && n.value == "*" {
		return true
	}
	values := entry.GetAttributeValues(n.attr)
	if n.value == "*" {
		return len(values) > 0
	}
	for _, v := range values {
		if strings.EqualFold(v, n.value) {
			return true
		}
	}
	return false
}

// parseFilter parses the subset of RFC 4515 the emulator supports.
func parseFilter(filter string) (*filterNode, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return nil, fmt.Errorf("empty filter")
	}

	node, rest, err := parseNode(filter)
	if err != nil {
		return nil, err
	}
	if rest != "" {
		return nil, fmt.Errorf("unexpected trailing input %q", rest)
	}
	return node, nil
}

func parseNode(s string) (*filterNode, string, error) {
	if len(s) < 2 || s[0] != '(' {
		return nil, "", fmt.Errorf("expected '(' at %q", s)
	}
	s = s[1:]

	switch s[0] {
	case '&', '|':
		op := s[0]
		s = s[1:]
		node := &filterNode{op: op}
		for len(s) > 0 && s[0] == '(' {
			child, rest, err := parseNode(s)
			if err != nil {
				return nil, "", err
			}
			node.children = append(node.children, child)
			s = rest
		}
		if len(node.children) == 0 {
			return nil, "", fmt.Errorf("empty composite filter")
		}
		if len(s) == 0 || s[0] != ')' {
			return nil, "", fmt.Errorf("unterminated composite filter")
		}
		return node, s[1:], nil

	case '!':
		child, rest, err := parseNode(s[1:])
		if err != nil {
			return nil, "", err
		}
		if len(rest) == 0 || rest[0] != ')' {
			return nil, "", fmt.Errorf("unterminated negation filter")
		}
		return &filterNode{op: '!', children: []*filterNode{child}}, rest[1:], nil
	}

	end := strings.IndexByte(s, ')')
	if end < 0 {
		return nil, "", fmt.Errorf("unterminated comparison filter")
	}
	comparison := s[:end]
	eq := strings.IndexByte(comparison, '=')
	if eq <= 0 {
		return nil, "", fmt.Errorf("malformed comparison %q", comparison)
	}

	return &filterNode{
		attr:  comparison[:eq],
		value: unescapeFilterValue(comparison[eq+1:]),
	}, s[end+1:], nil
}

// unescapeFilterValue reverses RFC 4515 hex escaping for the characters
// ldap.EscapeFilter produces.
func unescapeFilterValue(value string) string {
	if !strings.Contains(value, `\`) {
		return value
	}
	var sb strings.Builder
	for i := 0; i < len(value); i++ {
		if value[i] == '\\' && i+2 < len(value) {
			var b byte
			if _, err := fmt.Sscanf(value[i+1:i+3], "%02x", &b); err == nil {
				sb.WriteByte(b)
				i += 2
				continue
			}
		}
		sb.WriteByte(value[i])
	}
	return sb.String()
}
