// Package daemonctl launches, probes and stops the background concierge
// daemon on behalf of the CLI.
package daemonctl
