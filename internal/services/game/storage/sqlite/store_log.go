package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/louisbranch/parkline/internal/services/game/domain/command"
	"github.com/louisbranch/parkline/internal/services/game/domain/journal"
	"github.com/louisbranch/parkline/internal/services/game/domain/world"
	"github.com/louisbranch/parkline/internal/services/game/storage"
	"github.com/louisbranch/parkline/internal/services/game/storage/integrity"
)

const (
	verifyPageSize = 200
	entryColumns   = `seq, tick, command_type, issuer, request_id, frame, result, recorded_at,
	entry_hash, prev_chain_hash, chain_hash, signature_key_id, signature`
)

// Append seals, signs and stores e. e.Seq must follow the last stored entry.
func (s *Store) Append(ctx context.Context, e journal.Entry) (journal.Entry, error) {
	if err := ctx.Err(); err != nil {
		return journal.Entry{}, err
	}
	if s == nil || s.sqlDB == nil {
		return journal.Entry{}, fmt.Errorf("storage is not configured")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return journal.Entry{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var lastSeq uint64
	prevHash := ""
	err = tx.QueryRowContext(ctx, "SELECT seq, chain_hash FROM log_entries ORDER BY seq DESC LIMIT 1").Scan(&lastSeq, &prevHash)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return journal.Entry{}, fmt.Errorf("load last entry: %w", err)
	}
	if e.Seq != lastSeq+1 {
		return journal.Entry{}, fmt.Errorf("%w: expected %d got %d", journal.ErrSeqGap, lastSeq+1, e.Seq)
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = s.now()
	}

	sealed, err := journal.Seal(e, prevHash)
	if err != nil {
		return journal.Entry{}, err
	}
	if s.keyring != nil {
		if sealed, err = integrity.SignEntry(s.keyring, s.sessionID, sealed); err != nil {
			return journal.Entry{}, err
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO log_entries (`+entryColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(sealed.Seq),
		int64(sealed.Tick),
		int64(sealed.Type),
		int64(sealed.Issuer),
		int64(sealed.RequestID),
		sealed.Frame,
		nonNilBytes(sealed.Result),
		toMillis(sealed.RecordedAt),
		sealed.Hash,
		sealed.PrevHash,
		sealed.ChainHash,
		sealed.SignatureKeyID,
		sealed.Signature,
	); err != nil {
		if isConstraintError(err) {
			return journal.Entry{}, fmt.Errorf("%w: seq %d already stored", journal.ErrSeqGap, sealed.Seq)
		}
		return journal.Entry{}, fmt.Errorf("append entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return journal.Entry{}, fmt.Errorf("commit: %w", err)
	}
	return sealed, nil
}

// List returns up to limit entries after afterSeq. A non-positive limit
// returns every remaining entry.
func (s *Store) List(ctx context.Context, afterSeq uint64, limit int) ([]journal.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM log_entries WHERE seq > ? ORDER BY seq LIMIT ?",
		int64(afterSeq), limit)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []journal.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// LastSeq returns the sequence number of the newest entry, or zero.
func (s *Store) LastSeq(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	var seq int64
	if err := s.sqlDB.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) FROM log_entries").Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return uint64(seq), nil
}

// Entry returns one stored entry.
func (s *Store) Entry(ctx context.Context, seq uint64) (journal.Entry, error) {
	if err := ctx.Err(); err != nil {
		return journal.Entry{}, err
	}
	if s == nil || s.sqlDB == nil {
		return journal.Entry{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM log_entries WHERE seq = ?", int64(seq))
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return journal.Entry{}, storage.ErrNotFound
	}
	return e, err
}

// VerifyIntegrity checks sequence continuity, hashes and signatures of the
// whole log and returns the last sequence number.
func (s *Store) VerifyIntegrity(ctx context.Context) (uint64, error) {
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	var lastSeq uint64
	prevChainHash := ""
	for {
		entries, err := s.List(ctx, lastSeq, verifyPageSize)
		if err != nil {
			return lastSeq, err
		}
		if len(entries) == 0 {
			return lastSeq, nil
		}
		for _, e := range entries {
			if e.Seq != lastSeq+1 {
				return lastSeq, fmt.Errorf("%w: sequence gap expected=%d got=%d", storage.ErrIntegrity, lastSeq+1, e.Seq)
			}
			if err := integrity.VerifyEntry(s.keyring, s.sessionID, e, prevChainHash); err != nil {
				return lastSeq, fmt.Errorf("%w: %v", storage.ErrIntegrity, err)
			}
			prevChainHash = e.ChainHash
			lastSeq = e.Seq
		}
	}
}

func nonNilBytes(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (journal.Entry, error) {
	var (
		seq, tick, typ, issuer, requestID, recordedAt int64
		e                                             journal.Entry
	)
	if err := row.Scan(
		&seq, &tick, &typ, &issuer, &requestID,
		&e.Frame, &e.Result, &recordedAt,
		&e.Hash, &e.PrevHash, &e.ChainHash, &e.SignatureKeyID, &e.Signature,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return journal.Entry{}, err
		}
		return journal.Entry{}, fmt.Errorf("scan entry: %w", err)
	}
	e.Seq = uint64(seq)
	e.Tick = uint64(tick)
	e.Type = command.Type(typ)
	e.Issuer = world.PlayerID(issuer)
	e.RequestID = uint32(requestID)
	e.RecordedAt = fromMillis(recordedAt)
	return e, nil
}

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
