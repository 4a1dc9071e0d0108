// Package research talks to the external services that look up public
// information about guests.
//
// Three providers are available: Gemini with Google Search grounding, Claude,
// and any OpenAI-compatible chat completions endpoint (OpenRouter by
// default). All of them share one prompt and one JSON answer format, decoded
// by ParseFinding. A provider that cannot identify the guest returns
// ErrNoData; a lookup that runs past its deadline returns ErrProviderTimeout.
//
// Lookups cost money and are not idempotent. The enrichment executors only
// call a provider for guests without a stored result, and Limited caps the
// request rate when research.requests_per_minute is set.
package research
