// Package replication carries a park session over gRPC.
//
// One bidirectional stream per participant transports frames: a kind byte
// followed by tagged fields. The client sends Submit frames; the authority
// answers with a Snapshot on join and then Entry, Tick and Reply frames as the
// dispatcher produces them. A Fault frame precedes the authority closing the
// stream.
//
// The Hub fans dispatcher output out to every connected stream and to any
// other observer, such as the spectator feed. A subscriber that falls behind
// is disconnected rather than skipped, since a replica missing one entry can
// never converge.
package replication
