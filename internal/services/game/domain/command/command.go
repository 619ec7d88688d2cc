package command

import (
	"fmt"

	"github.com/louisbranch/parkline/internal/services/game/domain/world"
)

// Type is the stable identifier of a command kind. It is the wire tag.
type Type uint32

func (t Type) String() string {
	return fmt.Sprintf("0x%02X", uint32(t))
}

// Flags describe how a command may be executed.
type Flags uint32

const (
	// FlagEditorOnly restricts the command to the scenario editor or sandbox.
	FlagEditorOnly Flags = 1 << iota
	// FlagAllowWhilePaused lets the command run while the game is paused.
	FlagAllowWhilePaused
	// FlagGhost marks a preview execution with no durable effects.
	FlagGhost
	// FlagNetworkOriginated marks a command received from a remote participant.
	FlagNetworkOriginated
	// FlagSystem marks a command issued by the authority itself.
	FlagSystem
)

// headerFlags are the flags a participant may set per instance.
const headerFlags = FlagGhost | FlagNetworkOriginated

// Has reports whether all bits of f are set.
func (fl Flags) Has(f Flags) bool {
	return fl&f == f
}

// Command is one world-mutating intent.
type Command interface {
	Type() Type
	// Flags are the static flags of the kind.
	Flags() Flags
	Capability() Capability
	// Validate must not mutate the world.
	Validate(view world.View, ctx Context) Result
	Apply(m world.Mutator, ctx Context) Result
	MarshalFields(enc *Encoder)
	UnmarshalFields(dec *Decoder) error
}

// Header carries the per-instance envelope fields.
type Header struct {
	Issuer    world.PlayerID
	RequestID uint32
	Flags     Flags
}

// Envelope pairs a command with its header.
type Envelope struct {
	Header  Header
	Command Command
}

// Context is what validate and apply know about the invocation.
type Context struct {
	Issuer    world.PlayerID
	RequestID uint32
	Flags     Flags
	Tick      uint64
}

// NewContext merges static and per-instance flags.
func NewContext(env Envelope, tick uint64) Context {
	return Context{
		Issuer:    env.Header.Issuer,
		RequestID: env.Header.RequestID,
		Flags:     env.Command.Flags() | env.Header.Flags,
		Tick:      tick,
	}
}

// Ghost reports whether this is a preview execution.
func (c Context) Ghost() bool {
	return c.Flags.Has(FlagGhost)
}
