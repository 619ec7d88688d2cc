package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/louisbranch/parkline/internal/platform/id"
	"github.com/louisbranch/parkline/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/parkline/internal/services/game/storage"
	"github.com/louisbranch/parkline/internal/services/game/storage/integrity"
	"github.com/louisbranch/parkline/internal/services/game/storage/sqlite/migrations"
)

const metaSessionID = "session_id"

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store is a SQLite-backed replication log and audit event store.
type Store struct {
	sqlDB     *sql.DB
	keyring   *integrity.Keyring
	sessionID string
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for entries and audit events without a
// timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open opens the log at path, applying migrations. A new log is assigned a
// session id on first open. A nil keyring stores unsigned entries.
func Open(path string, keyring *integrity.Keyring, opts ...Option) (*Store, error) {
	store, err := openStore(path, migrations.LogFS, "log", keyring)
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

// Close closes the underlying SQLite database. It is nil-safe.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SessionID returns the session the log belongs to.
func (s *Store) SessionID() string {
	if s == nil {
		return ""
	}
	return s.sessionID
}

func openStore(path string, migrationFS fs.FS, migrationRoot string, keyring *integrity.Keyring) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	ctx := context.Background()
	if err := sqlitemigrate.ApplyMigrations(ctx, sqlDB, migrationFS, migrationRoot); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	sessionID, err := ensureSessionID(ctx, sqlDB)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return &Store{
		sqlDB:     sqlDB,
		keyring:   keyring,
		sessionID: sessionID,
		now:       time.Now,
	}, nil
}

func ensureSessionID(ctx context.Context, sqlDB *sql.DB) (string, error) {
	var sessionID string
	err := sqlDB.QueryRowContext(ctx, "SELECT value FROM log_meta WHERE key = ?", metaSessionID).Scan(&sessionID)
	if err == nil {
		return sessionID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("load session id: %w", err)
	}
	sessionID, err = id.NewID()
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	if _, err := sqlDB.ExecContext(ctx, "INSERT OR IGNORE INTO log_meta (key, value) VALUES (?, ?)", metaSessionID, sessionID); err != nil {
		return "", fmt.Errorf("store session id: %w", err)
	}
	// Another process may have won the insert.
	if err := sqlDB.QueryRowContext(ctx, "SELECT value FROM log_meta WHERE key = ?", metaSessionID).Scan(&sessionID); err != nil {
		return "", fmt.Errorf("reload session id: %w", err)
	}
	return sessionID, nil
}

var _ storage.LogStore = (*Store)(nil)
