package journal

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/parkline/internal/services/game/domain/command"
	"github.com/louisbranch/parkline/internal/services/game/domain/core/encoding"
	"github.com/louisbranch/parkline/internal/services/game/domain/world"
)

// Entry is one published command.
type Entry struct {
	Seq       uint64
	Tick      uint64
	Type      command.Type
	Issuer    world.PlayerID
	RequestID uint32
	// Frame is the canonical wire form of the command envelope.
	Frame []byte
	// Result is the authority's apply result, encoded with
	// command.EncodeResult.
	Result     []byte
	RecordedAt time.Time

	Hash           string
	PrevHash       string
	ChainHash      string
	Signature      string
	SignatureKeyID string
}

// TickMark closes a tick: every entry up to LastSeq belongs to Tick or an
// earlier one, and Checksum is the durable world digest after the tick.
type TickMark struct {
	Tick     uint64
	LastSeq  uint64
	Checksum string
}

// DecodeResult returns the published result.
func (e Entry) DecodeResult() (command.Result, error) {
	return command.DecodeResult(e.Result)
}

type hashEnvelope struct {
	Seq        uint64 `json:"seq"`
	Tick       uint64 `json:"tick"`
	Type       uint32 `json:"type"`
	Issuer     uint32 `json:"issuer"`
	RequestID  uint32 `json:"request_id"`
	Frame      string `json:"frame"`
	Result     string `json:"result"`
	RecordedAt int64  `json:"recorded_at"`
}

type chainEnvelope struct {
	Seq      uint64 `json:"seq"`
	Hash     string `json:"hash"`
	PrevHash string `json:"prev_hash"`
}

// EntryHash computes the content hash of an entry. Hash fields are ignored.
func EntryHash(e Entry) (string, error) {
	if e.Seq == 0 {
		return "", errors.New("entry seq is required")
	}
	if len(e.Frame) == 0 {
		return "", errors.New("entry frame is required")
	}
	return encoding.Digest(hashEnvelope{
		Seq:        e.Seq,
		Tick:       e.Tick,
		Type:       uint32(e.Type),
		Issuer:     uint32(e.Issuer),
		RequestID:  e.RequestID,
		Frame:      base64.StdEncoding.EncodeToString(e.Frame),
		Result:     base64.StdEncoding.EncodeToString(e.Result),
		RecordedAt: e.RecordedAt.UTC().UnixMilli(),
	})
}

// ChainHash links an entry to its predecessor's chain hash. e.Hash must be
// set.
func ChainHash(e Entry, prevHash string) (string, error) {
	if e.Hash == "" {
		return "", errors.New("entry hash is required")
	}
	return encoding.Digest(chainEnvelope{Seq: e.Seq, Hash: e.Hash, PrevHash: prevHash})
}

// Seal fills the hash fields of e given its predecessor's chain hash.
func Seal(e Entry, prevHash string) (Entry, error) {
	e.RecordedAt = e.RecordedAt.UTC().Truncate(time.Millisecond)
	hash, err := EntryHash(e)
	if err != nil {
		return Entry{}, fmt.Errorf("compute entry hash: %w", err)
	}
	e.Hash = hash
	e.PrevHash = prevHash
	chain, err := ChainHash(e, prevHash)
	if err != nil {
		return Entry{}, fmt.Errorf("compute chain hash: %w", err)
	}
	e.ChainHash = chain
	return e, nil
}

// Verify recomputes the hashes of e against prevHash.
func Verify(e Entry, prevHash string) error {
	if e.PrevHash != prevHash {
		return fmt.Errorf("entry %d: prev hash mismatch", e.Seq)
	}
	hash, err := EntryHash(e)
	if err != nil {
		return fmt.Errorf("entry %d: %w", e.Seq, err)
	}
	if hash != e.Hash {
		return fmt.Errorf("entry %d: hash mismatch", e.Seq)
	}
	chain, err := ChainHash(e, prevHash)
	if err != nil {
		return fmt.Errorf("entry %d: %w", e.Seq, err)
	}
	if chain != e.ChainHash {
		return fmt.Errorf("entry %d: chain hash mismatch", e.Seq)
	}
	return nil
}
