// Package cmd holds the startup plumbing shared by the parkline binaries.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/louisbranch/parkline/internal/platform/config"
	"github.com/louisbranch/parkline/internal/platform/otel"
)

const defaultOTelShutdownTimeout = 5 * time.Second

// Service names reported as the OTel resource of each binary.
const (
	ServiceGame        = "parkline-game"
	ServiceMaintenance = "parkline-maintenance"
)

// RunOptions controls shared entrypoint behavior for service commands.
type RunOptions struct {
	// ShutdownTimeout bounds the final span flush.
	ShutdownTimeout time.Duration
	// Telemetry overrides the tracing settings read from the environment.
	Telemetry *otel.Config
}

// Load reads environment defaults into a T, lets bind register flags over
// those defaults, parses args and validates the result when T implements
// config.Validator. Flags therefore always win over the environment.
func Load[T any](fs *flag.FlagSet, args []string, bind func(*T, *flag.FlagSet)) (T, error) {
	var cfg T
	if fs == nil {
		return cfg, errors.New("flag parser is required")
	}
	if err := config.ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	if bind != nil {
		bind(&cfg, fs)
	}
	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if v, ok := any(&cfg).(config.Validator); ok {
		if err := v.Validate(); err != nil {
			return cfg, fmt.Errorf("validate flags: %w", err)
		}
	}
	return cfg, nil
}

// RunWithTelemetry configures tracing from the environment and runs run.
func RunWithTelemetry(ctx context.Context, service string, run func(context.Context) error) error {
	return RunWithTelemetryAndOptions(ctx, service, RunOptions{}, run)
}

// RunWithTelemetryAndOptions configures tracing and runs run, flushing spans
// after it returns.
func RunWithTelemetryAndOptions(ctx context.Context, service string, options RunOptions, run func(context.Context) error) error {
	service = strings.TrimSpace(service)
	if service == "" {
		return errors.New("service name is required")
	}
	if run == nil {
		return errors.New("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	telemetry := options.Telemetry
	if telemetry == nil {
		cfg, err := otel.LoadConfig()
		if err != nil {
			return err
		}
		telemetry = &cfg
	}
	shutdown, err := otel.SetupWithConfig(ctx, service, *telemetry)
	if err != nil {
		return err
	}
	if telemetry.Enabled && telemetry.Endpoint != "" {
		log.Printf("%s tracing to %s", service, telemetry.Endpoint)
	}

	runErr := run(ctx)

	timeout := options.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultOTelShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := shutdown(shutdownCtx); err != nil {
		log.Printf("%s otel shutdown: %v", service, err)
	}
	return runErr
}
