// Package daemon coordinates the long-running concierge process.
//
// It wires configuration, the guest store, the workflow manager and the HTTP
// control surface into a single lifecycle with flock-based locking so only
// one instance drives the enrichment queues. On start the daemon runs
// preflight checks, lets the workflow manager recover interrupted queues and
// begins serving queue control, progress streams (SSE and websocket) and
// status. An optional cron schedule starts pending-guest runs unattended.
//
// Keep orchestration here: queue semantics live in workflow, request
// validation and payload shapes live in api.
package daemon
