// Package sysstate reads and updates the singleton system row of the running
// database: the cur_hw, cur_cfg and next_cfg counters.
package sysstate
