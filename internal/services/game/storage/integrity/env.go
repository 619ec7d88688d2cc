package integrity

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrKeyNotConfigured indicates that no signing key is set in the environment.
var ErrKeyNotConfigured = errors.New("log signing key is not configured")

const (
	envHMACKeys  = "PARKLINE_GAME_LOG_HMAC_KEYS"
	envHMACKey   = "PARKLINE_GAME_LOG_HMAC_KEY"
	envHMACKeyID = "PARKLINE_GAME_LOG_HMAC_KEY_ID"
	defaultKeyID = "v1"
)

// KeyringFromEnv loads the log signing keyring. PARKLINE_GAME_LOG_HMAC_KEYS
// holds "id=secret" pairs for rotation; PARKLINE_GAME_LOG_HMAC_KEY is the
// single-key shorthand.
func KeyringFromEnv() (*Keyring, error) {
	keyID := strings.TrimSpace(os.Getenv(envHMACKeyID))
	if keyID == "" {
		keyID = defaultKeyID
	}
	if list := strings.TrimSpace(os.Getenv(envHMACKeys)); list != "" {
		keys, err := parseKeyList(list)
		if err != nil {
			return nil, err
		}
		return NewKeyring(keys, keyID)
	}
	raw := strings.TrimSpace(os.Getenv(envHMACKey))
	if raw == "" {
		return nil, fmt.Errorf("%w: set %s", ErrKeyNotConfigured, envHMACKey)
	}
	return NewKeyring(map[string][]byte{keyID: []byte(raw)}, keyID)
}

func parseKeyList(list string) (map[string][]byte, error) {
	keys := make(map[string][]byte)
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, value, ok := strings.Cut(entry, "=")
		id, value = strings.TrimSpace(id), strings.TrimSpace(value)
		if !ok || id == "" || value == "" {
			return nil, fmt.Errorf("invalid %s entry", envHMACKeys)
		}
		keys[id] = []byte(value)
	}
	return keys, nil
}
