// Package accesslog persists one row per resolved package fetch. The SQLite
// schema is kept compatible with databases written by earlier deployments and
// is migrated additively on startup. Recording is asynchronous: the proxy only
// enqueues entries, and write failures are logged, never returned to clients.
package accesslog
