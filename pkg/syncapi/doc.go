// Package syncapi exposes the import engine over HTTP for administrators.
package syncapi
