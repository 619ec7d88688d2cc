package maintenance

import (
	"github.com/louisbranch/parkline/internal/services/game/storage"
)

// logStore is the replication log plus the audit trail kept beside it.
type logStore interface {
	storage.LogStore
	storage.AuditEventLister
}
