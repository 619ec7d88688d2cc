// Package command defines the contract every world-mutating command implements
// and the machinery shared by all of them: flags, capabilities, results, the
// wire codec and the registry that rebuilds commands from their wire form.
//
// A command exposes two entry points. Validate only reads the world and is run
// by the authority before sequencing. Apply mutates the world and is run once
// by the authority and once by every replica replaying the published form.
// Replicas never call Validate.
package command
