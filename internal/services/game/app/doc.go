// Package server composes the park authority into a runnable process.
//
// It opens the replication log, rebuilds the world from it, and serves the
// replication gRPC service plus the optional spectator feed around a single
// dispatcher.
package server
