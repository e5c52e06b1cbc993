package directory

import (
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// Filter is a composable LDAP search filter.
type Filter interface {
	String() string
}

type rawFilter string

func (f rawFilter) String() string {
	return string(f)
}

// Raw wraps an already-formed filter string.
func Raw(filter string) Filter {
	return rawFilter(filter)
}

type eqFilter struct {
	attr  string
	value string
}

// Eq matches entries whose attribute equals value. The value is escaped per
// RFC 4515.
func Eq(attr, value string) Filter {
	return eqFilter{attr: attr, value: value}
}

func (f eqFilter) String() string {
	return fmt.Sprintf("(%s=%s)", f.attr, ldap.EscapeFilter(f.value))
}

type presentFilter string

// Present matches entries that carry the attribute at all.
func Present(attr string) Filter {
	return presentFilter(attr)
}

func (f presentFilter) String() string {
	return fmt.Sprintf("(%s=*)", string(f))
}

type andFilter struct {
	parts []Filter
}

func And(filters ...Filter) Filter {
	return andFilter{parts: filters}
}

func (f andFilter) String() string {
	var parts []string
	for _, p := range f.parts {
		parts = append(parts, p.String())
	}
	return "(&" + strings.Join(parts, "") + ")"
}

type orFilter struct {
	parts []Filter
}

func Or(filters ...Filter) Filter {
	return orFilter{parts: filters}
}

func (f orFilter) String() string {
	var parts []string
	for _, p := range f.parts {
		parts = append(parts, p.String())
	}
	return "(|" + strings.Join(parts, "") + ")"
}

type notFilter struct {
	part Filter
}

func Not(filter Filter) Filter {
	return notFilter{part: filter}
}

func (f notFilter) String() string {
	return "(!" + f.part.String() + ")"
}
