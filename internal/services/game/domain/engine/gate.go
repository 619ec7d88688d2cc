package engine

import (
	"github.com/louisbranch/parkline/internal/services/game/domain/authz"
	"github.com/louisbranch/parkline/internal/services/game/domain/command"
	"github.com/louisbranch/parkline/internal/services/game/domain/world"
)

// admit runs the checks that precede validate: permission first, so an
// unauthorized issuer learns nothing about the world, then the pause rule.
func admit(gate *authz.Gate, view world.View, env command.Envelope) (command.Result, bool) {
	cmd := env.Command
	flags := cmd.Flags()
	if flags.Has(command.FlagSystem) && env.Header.Flags.Has(command.FlagNetworkOriginated) {
		return command.Forbidden(), false
	}
	if gate != nil && !gate.Authorize(gate.RoleOf(view, env.Header.Issuer), cmd) {
		return command.Forbidden(), false
	}
	if !pauseAllows(view, flags) {
		return command.Fail(command.StatusGamePaused, command.MsgGamePaused, command.MsgNone), false
	}
	return command.Ok(), true
}

// pauseAllows reports whether a command with flags may run now. Editor-only
// commands run in the editor, where the simulation never runs.
func pauseAllows(view world.View, flags command.Flags) bool {
	switch {
	case !view.Paused():
		return true
	case view.Cheats().BuildInPauseMode:
		return true
	case flags.Has(command.FlagAllowWhilePaused):
		return true
	case flags.Has(command.FlagEditorOnly) && view.InEditor():
		return true
	}
	return false
}
