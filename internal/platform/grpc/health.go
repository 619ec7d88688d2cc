package grpc

import (
	"context"
	"fmt"
	"time"

	gogrpc "google.golang.org/grpc"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	healthCheckTimeout = time.Second
	healthBackoffStart = 50 * time.Millisecond
	healthBackoffMax   = time.Second
)

// WaitForHealth polls the standard health service until service reports
// SERVING or ctx ends. The returned error names the last status observed.
func WaitForHealth(ctx context.Context, conn *gogrpc.ClientConn, service string, logf func(string, ...any)) error {
	if conn == nil {
		return fmt.Errorf("gRPC connection is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	client := grpc_health_v1.NewHealthClient(conn)
	backoff := healthBackoffStart
	last := "no response"
	for {
		callCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		resp, err := client.Check(callCtx, &grpc_health_v1.HealthCheckRequest{Service: service})
		cancel()
		switch {
		case err != nil:
			if ctx.Err() == nil {
				last = err.Error()
			}
		case resp.GetStatus() == grpc_health_v1.HealthCheckResponse_SERVING:
			if logf != nil {
				logf("gRPC health of %q is SERVING", service)
			}
			return nil
		default:
			last = resp.GetStatus().String()
		}
		if logf != nil {
			logf("waiting for gRPC health of %q: %s", service, last)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for gRPC health of %q (last: %s): %w", service, last, ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, healthBackoffMax)
	}
}
