// Package hmackey generates replication log signing keys in the environment
// format the game server reads.
package hmackey

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

// Config holds configuration for key generation.
type Config struct {
	Bytes int
	// KeyID, when set, emits a rotation keyring entry instead of the single
	// key shorthand.
	KeyID string
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Bytes: 32}
	fs.IntVar(&cfg.Bytes, "bytes", cfg.Bytes, "number of random bytes (default: 32)")
	fs.StringVar(&cfg.KeyID, "key-id", "", "emit a keyring entry with this id for key rotation")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run generates the key and writes the environment lines to out.
func Run(cfg Config, out io.Writer, reader io.Reader) error {
	if cfg.Bytes <= 0 {
		return errors.New("bytes must be greater than zero")
	}
	if out == nil {
		return errors.New("output is required")
	}
	keyID := strings.TrimSpace(cfg.KeyID)
	if strings.ContainsAny(keyID, "=, ") {
		return fmt.Errorf("key id %q must not contain '=', ',' or spaces", keyID)
	}
	if reader == nil {
		reader = rand.Reader
	}

	buf := make([]byte, cfg.Bytes)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return fmt.Errorf("generate random bytes: %w", err)
	}
	secret := hex.EncodeToString(buf)
	if keyID == "" {
		_, err := fmt.Fprintf(out, "PARKLINE_GAME_LOG_HMAC_KEY=%s\n", secret)
		return err
	}
	_, err := fmt.Fprintf(out, "PARKLINE_GAME_LOG_HMAC_KEYS=%s=%s\nPARKLINE_GAME_LOG_HMAC_KEY_ID=%s\n", keyID, secret, keyID)
	return err
}
