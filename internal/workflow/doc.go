// Package workflow runs enrichment queues.
//
// The Manager is the queue registry: it owns every queue run created since
// the daemon started (plus the running and paused ones recovered from the
// last checkpoint) and serves the pause, resume, stop, and skip controls.
// Each run is consumed by one executor goroutine. Queues with concurrency 1
// walk their guest list one at a time; higher concurrency processes
// consecutive batches with an errgroup, so a restart resumes at a batch
// boundary.
//
// Every job races the research provider against the job timeout and the
// queue's skip/stop controls. Whichever fires first decides the outcome and
// the other results are dropped. Every change to status, completed, or the
// resume cursor is checkpointed to SQLite before the next job starts; a
// failed checkpoint write is logged and never aborts the run.
//
// Guests that already have a stored result, including the no_result
// sentinel written after a failed or timed-out lookup, are counted without a
// provider call. A timed-out guest is therefore only retried after its
// result is cleared.
package workflow
