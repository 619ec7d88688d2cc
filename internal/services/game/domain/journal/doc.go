// Package journal defines the replication log: the ordered entries the
// authority publishes and every participant applies.
//
// Entries carry a content hash and a chain hash linking them to their
// predecessor, so storage can detect reordering or tampering.
package journal
