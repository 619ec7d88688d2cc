// Package grpc groups the game service's gRPC surface.
//
//   - replication/: the participant session stream and its client
//   - metadata/: request and participant identity carried in metadata
//   - interceptors/: server middleware shared by every stream
package grpc
