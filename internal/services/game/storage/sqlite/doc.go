// Package sqlite stores the replication log and audit events in SQLite.
//
// Entries are sealed into a hash chain on append and, when a keyring is
// configured, signed per session. VerifyIntegrity walks the chain so an
// offline tool can refuse a log that was edited or copied between sessions.
package sqlite
