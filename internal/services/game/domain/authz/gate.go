// Package authz decides whether a participant's role may issue a command.
package authz

import (
	"sync/atomic"

	"github.com/louisbranch/parkline/internal/services/game/domain/command"
	"github.com/louisbranch/parkline/internal/services/game/domain/world"
)

// Gate authorizes commands against the current policy. The policy can be
// swapped while the dispatcher runs.
type Gate struct {
	policy       atomic.Pointer[Policy]
	unrestricted bool
}

// NewGate builds a gate. An unrestricted gate authorizes everything, which is
// how sandbox and single-player sessions run.
func NewGate(policy *Policy, unrestricted bool) *Gate {
	if policy == nil {
		policy = DefaultPolicy()
	}
	g := &Gate{unrestricted: unrestricted}
	g.policy.Store(policy)
	return g
}

// Authorize reports whether role may issue cmd. System commands and commands
// that need no capability always pass.
func (g *Gate) Authorize(role world.GroupID, cmd command.Command) bool {
	if g.unrestricted || cmd.Flags().Has(command.FlagSystem) {
		return true
	}
	return g.Policy().Capabilities(role).Has(cmd.Capability())
}

// RoleOf resolves a participant's role from the world. Unknown players get
// the default group.
func (g *Gate) RoleOf(view world.View, player world.PlayerID) world.GroupID {
	if p, ok := view.Player(player); ok {
		return p.Group
	}
	return g.Policy().DefaultGroup
}

// Policy returns the current policy.
func (g *Gate) Policy() *Policy {
	return g.policy.Load()
}

// SetPolicy replaces the policy atomically.
func (g *Gate) SetPolicy(p *Policy) {
	if p != nil {
		g.policy.Store(p)
	}
}

// Unrestricted reports whether the session bypasses capability checks.
func (g *Gate) Unrestricted() bool {
	return g.unrestricted
}
