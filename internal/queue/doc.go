// Package queue persists enrichment state in SQLite: guest records, per-guest
// enrichment results (including the "no result" sentinel), and checkpoints of
// every enrichment queue run.
//
// Checkpoints are split across a parent row and two append-only child tables
// (ordered guest ids and accumulated job errors), so a write after every job
// touches only the new rows. The workflow package owns queue semantics; this
// package only stores and reloads snapshots.
//
// Schema changes bump the version in schema.go; users move the database aside
// to adopt the new schema.
package queue
