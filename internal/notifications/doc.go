// Package notifications pushes enrichment queue events to ntfy.
//
// NewService returns a noop implementation when no topic is configured, so
// callers never need to check whether notifications are enabled. The
// notifications.queue and notifications.errors switches filter events before
// any HTTP request is made.
package notifications
