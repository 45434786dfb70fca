// Package dbconn wraps a dedicated SQLite connection with the change
// sequence number and transaction discipline the cfgd stores rely on.
//
// Run is the connection pump: it reports the first sync once every monitored
// table exists, and afterwards observes commits by other connections through
// PRAGMA data_version. Local commits advance the number through the same
// pump, so the poller can wait for either.
package dbconn
