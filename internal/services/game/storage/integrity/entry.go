package integrity

import (
	"fmt"

	"github.com/louisbranch/parkline/internal/services/game/domain/journal"
)

// SignEntry signs a sealed entry's chain hash for a session.
func SignEntry(k *Keyring, sessionID string, e journal.Entry) (journal.Entry, error) {
	if e.ChainHash == "" {
		return journal.Entry{}, fmt.Errorf("entry %d is not sealed", e.Seq)
	}
	sig, keyID, err := k.sign(sessionID, e.Seq, e.Tick, e.ChainHash)
	if err != nil {
		return journal.Entry{}, fmt.Errorf("sign entry %d: %w", e.Seq, err)
	}
	e.Signature = sig
	e.SignatureKeyID = keyID
	return e, nil
}

// VerifyEntry checks e's hashes against its predecessor and, when k is set,
// its signature.
func VerifyEntry(k *Keyring, sessionID string, e journal.Entry, prevHash string) error {
	if err := journal.Verify(e, prevHash); err != nil {
		return err
	}
	if k == nil {
		return nil
	}
	if err := k.verify(sessionID, e.Seq, e.Tick, e.ChainHash, e.Signature, e.SignatureKeyID); err != nil {
		return fmt.Errorf("entry %d: %w", e.Seq, err)
	}
	return nil
}
