// Package api contains the game service's network surfaces.
//
// API handlers are organized by transport. Participants connect over gRPC;
// spectators follow the published log over a websocket.
//
// Subpackages:
//   - grpc/replication: the session stream, update hub and participant client
//   - grpc/metadata: request metadata helpers and interceptors
//   - grpc/interceptors: cross-cutting gRPC middleware
//   - ws/spectator: read-only websocket feed of published entries
package api
