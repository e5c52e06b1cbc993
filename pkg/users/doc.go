// Package users holds the local user records directory entries synchronize
// into, behind a UserRepository interface with PostgreSQL and in-memory
// implementations. Records carry a directory identifier (objectGUID) and a
// soft-delete marker; the sync engine never hard-deletes.
package users
