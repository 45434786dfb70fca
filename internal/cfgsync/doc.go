// Package cfgsync implements the interactive configuration workflows behind
// cfgdbutil: showing, copying and deleting the saved startup configuration.
//
// Every workflow opens its own connections and closes them before returning.
// Copying the startup configuration into the running database always
// applies; it is not gated on the boot-time completion counter.
package cfgsync
