// Package directory provides the object source for directory
// synchronization: a Directory interface over LDAP with a go-ldap/v3
// implementation, a composable search filter builder, Active Directory
// objectGUID handling, and an in-memory emulator for tests and local
// development.
package directory
