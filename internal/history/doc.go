// Package history records sync run outcomes.
//
// Store persists one row per run in a SQLite ledger; EventLog appends
// JSON-lines events for external tailing.
package history
