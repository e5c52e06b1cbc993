// Package importer reconciles directory objects with local user records.
//
// A Service reads objects from a directory.Directory, resolves each one to
// an existing user by directory identifier or username, maps its attributes
// onto the record, and applies a lifecycle policy deciding between create,
// update, soft-delete and restore. Runs are idempotent: importing the same
// directory state twice leaves the user store unchanged.
package importer
