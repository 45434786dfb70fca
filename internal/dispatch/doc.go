// Package dispatch implements the coordinator's boot sequence: wait for
// hardware, push the startup configuration, mark configuration done, and
// terminate.
//
// Steps are a StepKind enum run by Advance against an explicit Context. The
// Sequencer advances its cursor only when a step reports done.
package dispatch
