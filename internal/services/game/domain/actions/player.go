package actions

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/louisbranch/parkline/internal/services/game/domain/command"
	"github.com/louisbranch/parkline/internal/services/game/domain/world"
)

const maxPlayerNameLength = 32

// PlayerSetGroup moves a player to another permission group.
type PlayerSetGroup struct {
	Player world.PlayerID
	Group  world.GroupID
}

func (*PlayerSetGroup) Type() command.Type             { return TypePlayerSetGroup }
func (*PlayerSetGroup) Flags() command.Flags           { return command.FlagAllowWhilePaused }
func (*PlayerSetGroup) Capability() command.Capability { return command.CapSetPlayerGroup }

func (c *PlayerSetGroup) Validate(view world.View, ctx command.Context) command.Result {
	const title = "PLAYER_SET_GROUP_FAILED"
	if _, ok := view.Player(c.Player); !ok {
		return command.Fail(command.StatusInvalidParameters, title, "PLAYER_NOT_FOUND").
			WithArg("Player", strconv.FormatUint(uint64(c.Player), 10))
	}
	if _, ok := view.GroupName(c.Group); !ok {
		return command.Fail(command.StatusInvalidParameters, title, "GROUP_NOT_FOUND").
			WithArg("Group", strconv.Itoa(int(c.Group)))
	}
	if c.Player == world.HostPlayerID {
		return command.Fail(command.StatusDisallowed, title, "CANT_CHANGE_HOST_GROUP")
	}
	// Only members of the host's group may promote into it.
	if host, ok := view.Player(world.HostPlayerID); ok && c.Group == host.Group {
		issuer, ok := view.Player(ctx.Issuer)
		if !ok || issuer.Group != host.Group {
			return command.Fail(command.StatusDisallowed, title, "CANT_SET_TO_THIS_GROUP")
		}
	}
	return command.Ok()
}

func (c *PlayerSetGroup) Apply(m world.Mutator, _ command.Context) command.Result {
	p, ok := m.Player(c.Player)
	if !ok {
		return command.Fail(command.StatusInvalidParameters, "PLAYER_SET_GROUP_FAILED", "PLAYER_NOT_FOUND")
	}
	p.Group = c.Group
	m.PutPlayer(p)
	return command.Ok()
}

func (c *PlayerSetGroup) MarshalFields(enc *command.Encoder) {
	enc.Uint(uint64(c.Player))
	enc.Uint(uint64(c.Group))
}

func (c *PlayerSetGroup) UnmarshalFields(dec *command.Decoder) error {
	c.Player = world.PlayerID(dec.Uint32())
	c.Group = world.GroupID(dec.Uint8())
	return dec.Err()
}

// PlayerJoin records a participant joining. Only the authority issues it; a
// returning player keeps their group.
type PlayerJoin struct {
	Player world.PlayerID
	Name   string
	Group  world.GroupID
}

func (*PlayerJoin) Type() command.Type { return TypePlayerJoin }
func (*PlayerJoin) Flags() command.Flags {
	return command.FlagSystem | command.FlagAllowWhilePaused
}
func (*PlayerJoin) Capability() command.Capability { return command.CapNone }

func (c *PlayerJoin) Validate(view world.View, _ command.Context) command.Result {
	const title = "PLAYER_JOIN_FAILED"
	name := strings.TrimSpace(c.Name)
	if name == "" || utf8.RuneCountInString(name) > maxPlayerNameLength {
		return command.Fail(command.StatusInvalidParameters, title, "PLAYER_NAME_INVALID")
	}
	if _, ok := view.Player(c.Player); ok {
		return command.Ok()
	}
	if _, ok := view.GroupName(c.Group); !ok {
		return command.Fail(command.StatusInvalidParameters, title, "GROUP_NOT_FOUND").
			WithArg("Group", strconv.Itoa(int(c.Group)))
	}
	return command.Ok()
}

func (c *PlayerJoin) Apply(m world.Mutator, _ command.Context) command.Result {
	p := world.Player{ID: c.Player, Name: strings.TrimSpace(c.Name), Group: c.Group}
	if existing, ok := m.Player(c.Player); ok {
		p.Group = existing.Group
	}
	m.PutPlayer(p)
	return command.Ok()
}

func (c *PlayerJoin) MarshalFields(enc *command.Encoder) {
	enc.Uint(uint64(c.Player))
	enc.String(c.Name)
	enc.Uint(uint64(c.Group))
}

func (c *PlayerJoin) UnmarshalFields(dec *command.Decoder) error {
	c.Player = world.PlayerID(dec.Uint32())
	c.Name = dec.String()
	c.Group = world.GroupID(dec.Uint8())
	return dec.Err()
}
