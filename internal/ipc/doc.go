// Package ipc exposes the cfgd control channel over JSON-RPC on a Unix
// socket and ships the matching client used by "cfgd exit" and "cfgd status".
//
// The server never touches coordinator state directly; it forwards requests
// to a Controller that the coordinator drains from its own tick loop.
package ipc
