// Package engine runs commands: the authority's Dispatcher funnels every
// submission into one ordered queue, authorizes, validates, applies and
// publishes it, and a Replica applies the published log in the same order.
//
// The Dispatcher is the only writer of its world. Everything that touches the
// world (execution, ticks, join snapshots) happens under one lock, so readers
// only ever see the world between commands.
package engine
