// Command cfgdbutil copies configuration between the running database and
// the saved startup row, and shows or deletes the saved startup
// configuration.
package main
