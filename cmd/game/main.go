// Command game runs the park authority.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	gamecmd "github.com/louisbranch/parkline/internal/cmd/game"
	"github.com/louisbranch/parkline/internal/platform/config"
)

func main() {
	log.SetPrefix("[GAME] ")
	cfg, err := gamecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exit("[GAME] parse flags: ", &config.UsageError{Err: err})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	config.Exit("[GAME] serve: ", gamecmd.Run(ctx, cfg))
}
