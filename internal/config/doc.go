// Package config loads, normalizes, and validates concierge configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// GEMINI_API_KEY and ANTHROPIC_API_KEY. The Config type centralizes every knob
// the daemon and CLI need: data directories, research provider credentials,
// queue timings, and the optional pending-guest schedule.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
