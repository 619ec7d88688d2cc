package server

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds the authority's settings. Every field has an environment
// default so a zero-flag start works.
type Config struct {
	Port            int           `env:"PARKLINE_GAME_PORT" envDefault:"8082"`
	Addr            string        `env:"PARKLINE_GAME_ADDR"`
	DBPath          string        `env:"PARKLINE_GAME_DB_PATH"`
	PolicyPath      string        `env:"PARKLINE_GAME_POLICY_PATH"`
	TickInterval    time.Duration `env:"PARKLINE_GAME_TICK_INTERVAL" envDefault:"25ms"`
	QueueCapacity   int           `env:"PARKLINE_GAME_QUEUE_CAPACITY" envDefault:"1024"`
	IssuerLimit     int           `env:"PARKLINE_GAME_ISSUER_LIMIT"`
	CheckpointEvery uint64        `env:"PARKLINE_GAME_CHECKPOINT_EVERY" envDefault:"40"`
	Unrestricted    bool          `env:"PARKLINE_GAME_UNRESTRICTED"`
	MaxConnections  int           `env:"PARKLINE_GAME_MAX_CONNECTIONS" envDefault:"64"`
	SpectatorAddr   string        `env:"PARKLINE_GAME_SPECTATOR_ADDR"`
	// SubscriberBuffer is how many updates a session may lag before it is
	// disconnected.
	SubscriberBuffer int `env:"PARKLINE_GAME_SUBSCRIBER_BUFFER" envDefault:"256"`

	Park ParkConfig
}

// ParkConfig describes the park a fresh log starts from. A restart must use
// the same values as the run that wrote the log.
type ParkConfig struct {
	MapSize      int32  `env:"PARKLINE_GAME_MAP_SIZE" envDefault:"150"`
	Editor       bool   `env:"PARKLINE_GAME_EDITOR"`
	Seed         uint32 `env:"PARKLINE_GAME_SEED" envDefault:"1"`
	StartingCash int64  `env:"PARKLINE_GAME_STARTING_CASH" envDefault:"10000"`
	MaxElements  int    `env:"PARKLINE_GAME_MAX_ELEMENTS" envDefault:"196608"`
	HostName     string `env:"PARKLINE_GAME_HOST_NAME" envDefault:"Host"`
}

// Validate rejects settings the authority cannot run with.
func (c Config) Validate() error {
	if c.Addr == "" && (c.Port < 0 || c.Port > 65535) {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.TickInterval <= 0 {
		return errors.New("tick interval must be positive")
	}
	if c.QueueCapacity <= 0 {
		return errors.New("queue capacity must be positive")
	}
	if c.IssuerLimit < 0 {
		return errors.New("issuer limit must not be negative")
	}
	if c.MaxConnections <= 0 {
		return errors.New("max connections must be positive")
	}
	if c.SubscriberBuffer <= 0 {
		return errors.New("subscriber buffer must be positive")
	}
	if c.Park.MapSize < 3 || c.Park.MapSize > 1024 {
		return fmt.Errorf("map size %d out of range", c.Park.MapSize)
	}
	if c.Park.StartingCash < 0 {
		return errors.New("starting cash must not be negative")
	}
	return nil
}

// ListenAddr is Addr when set, otherwise all interfaces on Port.
func (c Config) ListenAddr() string {
	if c.Addr != "" {
		return c.Addr
	}
	return net.JoinHostPort("", strconv.Itoa(c.Port))
}

func (c Config) dbPath() string {
	if c.DBPath == "" {
		return filepath.Join("data", "game.db")
	}
	return c.DBPath
}
