package otel_test

import (
	"context"
	"testing"

	"github.com/louisbranch/parkline/internal/platform/otel"
)

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	t.Setenv("PARKLINE_OTEL_ENDPOINT", "")
	t.Setenv("PARKLINE_OTEL_ENABLED", "true")

	shutdown, err := otel.Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_NoopWhenExplicitlyDisabled(t *testing.T) {
	t.Setenv("PARKLINE_OTEL_ENDPOINT", "http://localhost:4318")
	t.Setenv("PARKLINE_OTEL_ENABLED", "false")

	shutdown, err := otel.Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_CreatesProviderWhenEndpointSet(t *testing.T) {
	// Use a non-routable address so no actual export happens.
	t.Setenv("PARKLINE_OTEL_ENDPOINT", "http://192.0.2.1:4318")
	t.Setenv("PARKLINE_OTEL_ENABLED", "true")

	shutdown, err := otel.Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_RejectsBadEnabledValue(t *testing.T) {
	t.Setenv("PARKLINE_OTEL_ENDPOINT", "http://192.0.2.1:4318")
	t.Setenv("PARKLINE_OTEL_ENABLED", "sometimes")

	if _, err := otel.Setup(context.Background(), "test-service"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSetupWithConfig_RejectsSampleRatio(t *testing.T) {
	cfg := otel.Config{Endpoint: "http://192.0.2.1:4318", Enabled: true, SampleRatio: 2}
	if _, err := otel.SetupWithConfig(context.Background(), "test-service", cfg); err == nil {
		t.Fatal("expected sample ratio error")
	}
}

func TestSetup_NoopShutdownIgnoresCancelledContext(t *testing.T) {
	t.Setenv("PARKLINE_OTEL_ENDPOINT", "")
	t.Setenv("PARKLINE_OTEL_ENABLED", "true")

	shutdown, err := otel.Setup(context.Background(), "noop-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("noop shutdown should not error: %v", err)
	}
}
