// Command cfgd applies the saved startup configuration to the running
// configuration database once per boot, after hardware initialization has
// finished, and then exits.
//
// The exit and status subcommands talk to a running cfgd over its control
// socket.
package main
