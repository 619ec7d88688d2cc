package authz

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/louisbranch/parkline/internal/services/game/domain/command"
	"github.com/louisbranch/parkline/internal/services/game/domain/world"
)

// Built-in group ids.
const (
	GroupAdmin     world.GroupID = 0
	GroupModerator world.GroupID = 1
	GroupGuest     world.GroupID = 2
)

// allCapabilities is the policy file spelling of every capability.
const allCapabilities = "*"

// Group is a named role and its capabilities.
type Group struct {
	ID           world.GroupID
	Name         string
	Capabilities command.CapabilitySet
}

// Policy maps roles to capability sets. It is immutable once built.
type Policy struct {
	Groups       map[world.GroupID]Group
	DefaultGroup world.GroupID
}

type policyFile struct {
	DefaultGroup *uint8            `yaml:"default_group"`
	Groups       []policyFileGroup `yaml:"groups"`
}

type policyFileGroup struct {
	ID           uint8    `yaml:"id"`
	Name         string   `yaml:"name"`
	Capabilities []string `yaml:"capabilities"`
}

// DefaultPolicy returns the built-in groups.
func DefaultPolicy() *Policy {
	return &Policy{
		DefaultGroup: GroupGuest,
		Groups: map[world.GroupID]Group{
			GroupAdmin: {ID: GroupAdmin, Name: "Admin", Capabilities: command.AllCapabilities},
			GroupModerator: {ID: GroupModerator, Name: "Moderator", Capabilities: command.CapabilitiesOf(
				command.CapChat, command.CapTerraform, command.CapTogglePause, command.CapCreateRide,
				command.CapRemoveRide, command.CapBuildRide, command.CapRideProperties, command.CapScenery,
				command.CapPath, command.CapClearLandscape, command.CapKickPlayer, command.CapSetPlayerGroup,
			)},
			GroupGuest: {ID: GroupGuest, Name: "Guest", Capabilities: command.CapabilitiesOf(command.CapChat)},
		},
	}
}

// LoadPolicy reads a YAML policy file. A missing file yields the default
// policy. Invalid YAML or unknown capability names are errors.
func LoadPolicy(path string) (*Policy, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultPolicy(), nil
		}
		return nil, fmt.Errorf("read policy: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy builds a policy from YAML.
func ParsePolicy(data []byte) (*Policy, error) {
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	if len(file.Groups) == 0 {
		return nil, errors.New("policy must define at least one group")
	}

	p := &Policy{Groups: make(map[world.GroupID]Group, len(file.Groups))}
	for _, g := range file.Groups {
		id := world.GroupID(g.ID)
		if _, exists := p.Groups[id]; exists {
			return nil, fmt.Errorf("group %d defined twice", g.ID)
		}
		name := strings.TrimSpace(g.Name)
		if name == "" {
			return nil, fmt.Errorf("group %d: name is required", g.ID)
		}
		var caps command.CapabilitySet
		for _, raw := range g.Capabilities {
			if strings.TrimSpace(raw) == allCapabilities {
				caps = command.AllCapabilities
				continue
			}
			c, err := command.ParseCapability(raw)
			if err != nil {
				return nil, fmt.Errorf("group %q: %w", name, err)
			}
			caps = caps.With(c)
		}
		p.Groups[id] = Group{ID: id, Name: name, Capabilities: caps}
	}

	if file.DefaultGroup != nil {
		p.DefaultGroup = world.GroupID(*file.DefaultGroup)
	} else {
		p.DefaultGroup = lowestPrivilege(p.Groups)
	}
	if _, ok := p.Groups[p.DefaultGroup]; !ok {
		return nil, fmt.Errorf("default group %d is not defined", p.DefaultGroup)
	}
	return p, nil
}

// Capabilities returns the set granted to a role. Unknown roles get nothing.
func (p *Policy) Capabilities(role world.GroupID) command.CapabilitySet {
	if g, ok := p.Groups[role]; ok {
		return g.Capabilities
	}
	return 0
}

// GroupNames maps ids to names for seeding the world.
func (p *Policy) GroupNames() map[world.GroupID]string {
	out := make(map[world.GroupID]string, len(p.Groups))
	for id, g := range p.Groups {
		out[id] = g.Name
	}
	return out
}

func lowestPrivilege(groups map[world.GroupID]Group) world.GroupID {
	ids := make([]world.GroupID, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	best := ids[0]
	for _, id := range ids[1:] {
		if groups[id].Capabilities.Len() < groups[best].Capabilities.Len() {
			best = id
		}
	}
	return best
}
