package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/parkline/internal/services/game/domain/journal"
	"github.com/louisbranch/parkline/internal/services/game/storage/integrity"
)

var testNow = time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)

func testKeyring(t *testing.T) *integrity.Keyring {
	t.Helper()
	keyring, err := integrity.NewKeyring(
		map[string][]byte{"test-key-1": []byte("0123456789abcdef0123456789abcdef")},
		"test-key-1",
	)
	if err != nil {
		t.Fatalf("create test keyring: %v", err)
	}
	return keyring
}

func openTestStore(t *testing.T, keyring *integrity.Keyring) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "log.sqlite")
	store, err := Open(path, keyring, WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store, path
}

func testEntry(seq uint64) journal.Entry {
	return journal.Entry{
		Seq:       seq,
		Tick:      seq / 2,
		Type:      0x22,
		Issuer:    3,
		RequestID: uint32(seq) + 100,
		Frame:     []byte{0x22, 0, 0, 0, 0x08, 0x01, byte(seq)},
		Result:    []byte{0x08, 0x00},
	}
}
