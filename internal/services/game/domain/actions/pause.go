package actions

import (
	"github.com/louisbranch/parkline/internal/services/game/domain/command"
	"github.com/louisbranch/parkline/internal/services/game/domain/world"
)

// PauseToggle pauses or resumes the simulation.
type PauseToggle struct{}

func (*PauseToggle) Type() command.Type                     { return TypePauseToggle }
func (*PauseToggle) Flags() command.Flags                   { return command.FlagAllowWhilePaused }
func (*PauseToggle) Capability() command.Capability         { return command.CapTogglePause }
func (*PauseToggle) MarshalFields(*command.Encoder)         {}
func (*PauseToggle) UnmarshalFields(*command.Decoder) error { return nil }
func (*PauseToggle) Validate(world.View, command.Context) command.Result {
	return command.Ok()
}

func (*PauseToggle) Apply(m world.Mutator, ctx command.Context) command.Result {
	if !ctx.Ghost() {
		m.SetPaused(!m.Paused())
	}
	return command.Ok()
}
