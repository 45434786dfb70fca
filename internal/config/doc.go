// Package config loads, normalizes, and validates cfgd configuration data.
//
// It supplies repository defaults, reads TOML files from /etc/cfgd/cfgd.toml
// or ./cfgd.toml, strips "unix:"/"file:" prefixes from database endpoints,
// and honours the CFGD_DATABASE environment override for the running-config
// store. Both cfgd and cfgdbutil obtain their settings through this package.
package config
