// Package services defines shared utilities consumed by the enrichment
// workflow and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp queue IDs, guest IDs, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so provider, timeout, and
//     persistence failures classify consistently in logs and API responses.
package services
