// Package integrity signs and verifies the replication log's hash chain.
//
// Every stored entry carries a content hash and a chain hash linking it to its
// predecessor. A keyring adds an HMAC over the chain hash, derived per session,
// so a log copied between sessions or edited offline fails verification.
package integrity
