// Package storage defines persistence contracts for the game service: the
// durable replication log and audit events. Implementations (SQLite) live in
// subpackages.
package storage
