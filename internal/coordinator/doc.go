// Package coordinator runs cfgd: it takes the single-instance lock, reads any
// saved startup configuration during a bounded discovery pass, serves the
// control socket, and ticks the dispatch sequence until the configuration
// lifecycle completes.
//
// Before the first step the coordinator checks cur_cfg; a nonzero value means
// this boot was already configured and the run ends without side effects.
package coordinator
