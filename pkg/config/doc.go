// Package config loads the application settings from the environment.
//
// Fixed settings (database, JWT, SMTP, SSO) are plain cleanenv structs. The
// directory providers are dynamic: LDAP_SYNC_PROVIDERS names them and each
// one reads its own LDAP_<NAME>_* variables into a Registry entry.
package config
