// Command concierge runs the guest enrichment daemon and drives its queues
// over the HTTP control surface.
//
//	concierge daemon                     run the daemon in the foreground
//	concierge start | stop | status      manage a background daemon
//	concierge queue start 12 15 19       enrich specific guests
//	concierge queue start-pending        enrich every guest without a result
//	concierge queue watch <id>           follow progress until completion
//	concierge results clear 15           research a guest again on the next run
package main
