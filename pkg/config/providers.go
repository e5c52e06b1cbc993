package config

import (
	"fmt"
	"strings"

	"github.com/tendant/ldap-sync/pkg/directory"
	"github.com/tendant/ldap-sync/pkg/importer"
)

// LDAPConfig holds the connection settings of one directory provider.
type LDAPConfig struct {
	URL               string
	BaseDN            string
	BindDN            string
	BindPassword      string
	UsernameAttribute string
	PageSize          int
}

// ToDirectoryConfig converts the config to the directory client form.
func (c LDAPConfig) ToDirectoryConfig() directory.Config {
	if c.PageSize < 0 {
		c.PageSize = 0
	}
	return directory.Config{
		URL:               c.URL,
		BaseDN:            c.BaseDN,
		BindDN:            c.BindDN,
		BindPassword:      c.BindPassword,
		UsernameAttribute: c.UsernameAttribute,
		PageSize:          uint32(c.PageSize),
	}
}

// SyncConfig holds the per-provider import policy.
type SyncConfig struct {
	Domain             string
	Filter             string
	Attributes         map[string]string
	SyncExisting       bool
	SoftDeleteDisabled bool
	RestoreEnabled     bool
	DeleteMissing      bool
}

// ToOptions converts the config to run options for the given provider.
func (c SyncConfig) ToOptions(provider string) importer.Options {
	return importer.Options{
		Provider:           provider,
		Domain:             c.Domain,
		Filter:             c.Filter,
		Attributes:         c.Attributes,
		SyncExisting:       c.SyncExisting,
		SoftDeleteDisabled: c.SoftDeleteDisabled,
		RestoreEnabled:     c.RestoreEnabled,
		DeleteMissing:      c.DeleteMissing,
	}
}

// Provider couples a directory connection with an import policy under a name.
type Provider struct {
	Name string
	LDAP LDAPConfig
	Sync SyncConfig
}

// Registry resolves provider names to their configuration.
type Registry struct {
	providers map[string]Provider
}

// LoadProviders reads the provider registry from the environment. The
// LDAP_SYNC_PROVIDERS variable lists the provider names; each provider is
// configured through LDAP_<NAME>_* variables, e.g. for a provider "corp":
//
//	LDAP_CORP_URL=ldaps://dc1.corp.example.com
//	LDAP_CORP_BASE_DN=DC=corp,DC=example,DC=com
//	LDAP_CORP_BIND_DN=CN=svc-sync,OU=Service,DC=corp,DC=example,DC=com
//	LDAP_CORP_BIND_PASSWORD=...
func LoadProviders() *Registry {
	registry := &Registry{providers: make(map[string]Provider)}

	names := strings.Split(getEnvOrDefault("LDAP_SYNC_PROVIDERS", ""), ",")
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		registry.providers[strings.ToLower(name)] = loadProvider(name)
	}

	return registry
}

func loadProvider(name string) Provider {
	prefix := "LDAP_" + strings.ToUpper(name) + "_"

	attributes, err := ParseAttributeMap(getEnvOrDefault(prefix+"ATTRIBUTES", ""))
	if err != nil {
		attributes = nil
	}

	return Provider{
		Name: strings.ToLower(name),
		LDAP: LDAPConfig{
			URL:               getEnvOrDefault(prefix+"URL", ""),
			BaseDN:            getEnvOrDefault(prefix+"BASE_DN", ""),
			BindDN:            getEnvOrDefault(prefix+"BIND_DN", ""),
			BindPassword:      getEnvOrDefault(prefix+"BIND_PASSWORD", ""),
			UsernameAttribute: getEnvOrDefault(prefix+"USERNAME_ATTRIBUTE", ""),
			PageSize:          getEnvInt(prefix+"PAGE_SIZE", 0),
		},
		Sync: SyncConfig{
			Domain:             getEnvOrDefault(prefix+"DOMAIN", strings.ToLower(name)),
			Filter:             getEnvOrDefault(prefix+"FILTER", ""),
			Attributes:         attributes,
			SyncExisting:       getEnvBool(prefix+"SYNC_EXISTING", false),
			SoftDeleteDisabled: getEnvBool(prefix+"SOFT_DELETE_DISABLED", false),
			RestoreEnabled:     getEnvBool(prefix+"RESTORE_ENABLED", false),
			DeleteMissing:      getEnvBool(prefix+"DELETE_MISSING", false),
		},
	}
}

// Add registers a provider, replacing any existing one with the same name.
func (r *Registry) Add(provider Provider) {
	r.providers[strings.ToLower(provider.Name)] = provider
}

// Names returns the registered provider names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// Get resolves a provider name. Unknown or incomplete providers are reported
// as a ConfigurationError before any directory query runs.
func (r *Registry) Get(name string) (Provider, error) {
	provider, ok := r.providers[strings.ToLower(name)]
	if !ok {
		return Provider{}, &importer.ConfigurationError{
			Provider: name,
			Reason:   "provider is not registered",
		}
	}
	if provider.LDAP.URL == "" {
		return Provider{}, &importer.ConfigurationError{
			Provider: name,
			Reason:   "directory URL is not set",
		}
	}
	if provider.LDAP.BaseDN == "" {
		return Provider{}, &importer.ConfigurationError{
			Provider: name,
			Reason:   "directory base DN is not set",
		}
	}
	return provider, nil
}

// ParseAttributeMap parses a "ldapAttribute=field,..." mapping string.
func ParseAttributeMap(value string) (map[string]string, error) {
	if value == "" {
		return nil, nil
	}

	mapping := make(map[string]string)
	for _, pair := range strings.Split(value, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		attr, field, ok := strings.Cut(pair, "=")
		if !ok || attr == "" || field == "" {
			return nil, fmt.Errorf("invalid attribute mapping %q, want attribute=field", pair)
		}
		mapping[strings.TrimSpace(attr)] = strings.TrimSpace(field)
	}
	return mapping, nil
}
