// Package preflight provides readiness checks for the filesystem paths and
// research provider credentials the concierge daemon depends on.
//
// The daemon runs RunAll once at start and logs every failing check; the
// results are also reported by GET /api/status and "concierge status".
// Failures never block startup: a queue created while a check fails will
// record per-guest errors instead.
package preflight
