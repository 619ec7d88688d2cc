package integrity

import (
	"crypto/hkdf"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

var (
	// ErrUnknownKey reports a signature made with a key the ring does not hold.
	ErrUnknownKey = errors.New("unknown log signing key")
	// ErrSignatureMismatch reports a signature that does not match its entry.
	ErrSignatureMismatch = errors.New("log signature mismatch")
)

// Keyring holds the root log signing keys. Each replication session signs
// with a key derived from the active root key and the session id, so a
// signature never verifies under another session.
type Keyring struct {
	roots  map[string][]byte
	active string

	mu      sync.Mutex
	derived map[sessionKey][]byte
}

type sessionKey struct {
	keyID   string
	session string
}

// NewKeyring builds a keyring that signs with activeKeyID.
func NewKeyring(keys map[string][]byte, activeKeyID string) (*Keyring, error) {
	if len(keys) == 0 {
		return nil, errors.New("log signing keys are required")
	}
	activeKeyID = strings.TrimSpace(activeKeyID)
	if activeKeyID == "" {
		return nil, errors.New("active log signing key id is required")
	}
	if _, ok := keys[activeKeyID]; !ok {
		return nil, fmt.Errorf("active key %q: %w", activeKeyID, ErrUnknownKey)
	}
	roots := make(map[string][]byte, len(keys))
	for id, key := range keys {
		roots[id] = append([]byte(nil), key...)
	}
	return &Keyring{roots: roots, active: activeKeyID, derived: make(map[sessionKey][]byte)}, nil
}

// ActiveKeyID returns the id new signatures are made with.
func (k *Keyring) ActiveKeyID() string {
	if k == nil {
		return ""
	}
	return k.active
}

// KeyIDs lists every key the ring can verify with.
func (k *Keyring) KeyIDs() []string {
	if k == nil {
		return nil
	}
	ids := make([]string, 0, len(k.roots))
	for id := range k.roots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// sign returns the signature of a sealed entry's position and chain hash.
func (k *Keyring) sign(sessionID string, seq, tick uint64, chainHash string) (string, string, error) {
	if k == nil {
		return "", "", errors.New("log signing keyring is not configured")
	}
	key, err := k.sessionKey(k.active, sessionID)
	if err != nil {
		return "", "", err
	}
	return mac(key, seq, tick, chainHash), k.active, nil
}

func (k *Keyring) verify(sessionID string, seq, tick uint64, chainHash, signature, keyID string) error {
	keyID = strings.TrimSpace(keyID)
	if keyID == "" {
		return errors.New("signature key id is missing")
	}
	key, err := k.sessionKey(keyID, sessionID)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(mac(key, seq, tick, chainHash)), []byte(signature)) {
		return ErrSignatureMismatch
	}
	return nil
}

func (k *Keyring) sessionKey(keyID, sessionID string) ([]byte, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}
	id := sessionKey{keyID: keyID, session: sessionID}

	k.mu.Lock()
	defer k.mu.Unlock()
	if key, ok := k.derived[id]; ok {
		return key, nil
	}
	root, ok := k.roots[keyID]
	if !ok {
		return nil, fmt.Errorf("key %q: %w", keyID, ErrUnknownKey)
	}
	key, err := hkdf.Key(sha256.New, root, nil, "parkline-log:"+sessionID, 32)
	if err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	k.derived[id] = key
	return key, nil
}

func mac(key []byte, seq, tick uint64, chainHash string) string {
	h := hmac.New(sha256.New, key)
	_, _ = h.Write([]byte(strconv.FormatUint(seq, 10) + ":" + strconv.FormatUint(tick, 10) + ":" + chainHash))
	return hex.EncodeToString(h.Sum(nil))
}
