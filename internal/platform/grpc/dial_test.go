package grpc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	gogrpc "google.golang.org/grpc"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

func TestDialWithHealthSuccess(t *testing.T) {
	addr, _, stop := startHealthServer(t, grpc_health_v1.HealthCheckResponse_SERVING)
	defer stop()

	conn, err := DialWithHealth(context.Background(), addr, "", 2*time.Second, nil)
	if err != nil {
		t.Fatalf("dial with health: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("close conn: %v", err)
	}
}

func TestDialWithHealthChecksNamedService(t *testing.T) {
	addr, health, stop := startHealthServer(t, grpc_health_v1.HealthCheckResponse_SERVING)
	defer stop()
	health.SetServingStatus("park.Session", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	if _, err := DialWithHealth(context.Background(), addr, "park.Session", 300*time.Millisecond, nil); err == nil {
		t.Fatal("expected error while the named service is not serving")
	}

	health.SetServingStatus("park.Session", grpc_health_v1.HealthCheckResponse_SERVING)
	conn, err := DialWithHealth(context.Background(), addr, "park.Session", 2*time.Second, nil)
	if err != nil {
		t.Fatalf("dial with health: %v", err)
	}
	_ = conn.Close()
}

func TestDialWithHealthTimeoutBoundsHealthCheck(t *testing.T) {
	addr, _, stop := startHealthServer(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	defer stop()

	start := time.Now()
	_, err := DialWithHealth(context.Background(), addr, "", 150*time.Millisecond, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Fatalf("expected timeout to bound health check, took %v", elapsed)
	}
	var dialErr *DialError
	if !errors.As(err, &dialErr) || dialErr.Stage != DialStageHealth {
		t.Fatalf("expected health stage error, got %v", err)
	}
	if !strings.Contains(err.Error(), "NOT_SERVING") {
		t.Fatalf("expected last status in error, got %v", err)
	}
}

func TestDialWithHealthConnectStage(t *testing.T) {
	_, err := DialWithHealth(context.Background(), "127.0.0.1:1", "", time.Second, nil, gogrpc.WithUserAgent("parkline-test"))
	if err == nil {
		t.Fatal("expected error without transport credentials")
	}
	var dialErr *DialError
	if !errors.As(err, &dialErr) || dialErr.Stage != DialStageConnect {
		t.Fatalf("expected connect stage, got %v", err)
	}
}

func TestDialErrorFormatting(t *testing.T) {
	wrapped := &DialError{Stage: DialStageConnect, Err: fmt.Errorf("boom")}
	if !strings.Contains(wrapped.Error(), "gRPC connect") {
		t.Fatalf("unexpected error: %s", wrapped.Error())
	}
	if wrapped.Unwrap() == nil {
		t.Fatal("expected wrapped error")
	}

	var nilErr *DialError
	if nilErr.Error() == "" {
		t.Fatal("expected fallback error message")
	}
	if nilErr.Unwrap() != nil {
		t.Fatal("expected nil unwrap for nil error")
	}
}
