// Package replay rebuilds world state from the replication log.
//
// Replay never validates: the authority already decided every outcome, and
// replicas only reproduce it. A replayed status that differs from the
// published one means the participants diverged.
package replay
