// Package preflight provides readiness checks for the filesystem paths cfgd
// depends on.
//
// The coordinator checks its run directory before taking the instance lock.
// "cfgd check" runs every check and prints the results.
package preflight
