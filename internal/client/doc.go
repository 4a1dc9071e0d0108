// Package client is the CLI's view of the concierge daemon's HTTP control
// surface. Unary calls decode the api package payloads; Watch and Stream
// follow a queue over the websocket and Server-Sent Events routes.
package client
