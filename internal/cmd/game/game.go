// Package game parses game command flags and starts the park authority.
package game

import (
	"context"
	"flag"

	entrypoint "github.com/louisbranch/parkline/internal/platform/cmd"
	server "github.com/louisbranch/parkline/internal/services/game/app"
)

// Config holds game command configuration.
type Config struct {
	server.Config
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	return entrypoint.Load(fs, args, bindFlags)
}

func bindFlags(cfg *Config, fs *flag.FlagSet) {
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The game server port")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The game server listen address (overrides -port)")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "Path to the replication log database (default: data/game.db)")
	fs.StringVar(&cfg.PolicyPath, "policy", cfg.PolicyPath, "Path to a permission policy file, watched for changes")
	fs.StringVar(&cfg.SpectatorAddr, "spectator-addr", cfg.SpectatorAddr, "Listen address for the spectator websocket feed")
	fs.DurationVar(&cfg.TickInterval, "tick", cfg.TickInterval, "Interval between ticks")
	fs.BoolVar(&cfg.Unrestricted, "unrestricted", cfg.Unrestricted, "Skip permission checks")
	fs.BoolVar(&cfg.Park.Editor, "editor", cfg.Park.Editor, "Start the park in editor mode")
}

// Run starts the park authority.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceGame, func(ctx context.Context) error {
		return server.Run(ctx, cfg.Config)
	})
}
