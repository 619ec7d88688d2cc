// Package main provides replication log maintenance utilities.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	entrypoint "github.com/louisbranch/parkline/internal/platform/cmd"
	"github.com/louisbranch/parkline/internal/platform/config"
	"github.com/louisbranch/parkline/internal/tools/maintenance"
)

func main() {
	cfg, err := maintenance.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exit("Error: ", &config.UsageError{Err: err})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	err = entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMaintenance, func(ctx context.Context) error {
		return maintenance.Run(ctx, cfg, os.Stdout, os.Stderr)
	})
	config.Exit("Error: ", err)
}
