// Package interceptors holds gRPC server middleware for the game service.
package interceptors
