// Package api defines wire-format types and converters for the HTTP control
// surface. It translates workflow snapshots and persisted checkpoints into
// transport-friendly DTOs so clients never couple to internal types.
//
// # Key Types
//
// QueueState: a live queue run with progress, in-flight guests and errors.
//
// ActiveResponse: the GET /queue/active payload, inlining QueueState when a
// queue is active.
//
// QueueSummary: a persisted checkpoint as listed by GET /queues.
//
// StartRequest / StartPendingRequest: validated request bodies.
//
// # Services
//
// QueueService turns requests into workflow.Manager calls. It resolves the
// default concurrency, starts queues over pending guests, applies control
// actions and clears results for manual retry.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Statuses are exposed as lowercase strings and
// timestamps as RFC3339 with milliseconds. List fields are always non-nil.
package api
