// Command hmac-key prints a fresh replication log signing key as env lines.
package main

import (
	"flag"
	"os"

	"github.com/louisbranch/parkline/internal/platform/config"
	"github.com/louisbranch/parkline/internal/tools/hmackey"
)

func main() {
	cfg, err := hmackey.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exit("parse flags: ", &config.UsageError{Err: err})
	}
	config.Exit("generate key: ", hmackey.Run(cfg, os.Stdout, nil))
}
