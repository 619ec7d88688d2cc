// Package metadata provides utilities for handling gRPC request metadata.
//
// It defines the header keys a replication session carries and provides
// interceptors that guarantee every inbound stream has a request ID for logs
// and audit events.
//
// # Header Constants
//
//   - RequestIDHeader: Correlates logs and audit events for one connection.
//   - PlayerIDHeader: The participant a connection speaks for.
package metadata
