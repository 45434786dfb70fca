// Package poller blocks until a database connection's change sequence number
// advances.
//
// The same primitive serves the bounded discovery pass, the open-ended wait
// for a workflow connection's first sync, and commit completion. Every wait
// honours context cancellation.
package poller
