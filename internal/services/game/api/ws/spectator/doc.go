// Package spectator serves a read-only websocket feed of published commands.
//
// Each published entry is written as one JSON object. Spectators never submit
// commands and never see replies addressed to participants.
package spectator
