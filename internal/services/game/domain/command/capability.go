package command

import (
	"fmt"
	"math/bits"
	"sort"
	"strings"
)

// Capability names the permission that governs a command kind.
type Capability uint8

const (
	// CapNone is never restricted.
	CapNone Capability = iota
	CapChat
	CapTerraform
	CapTogglePause
	CapCreateRide
	CapRemoveRide
	CapBuildRide
	CapRideProperties
	CapScenery
	CapPath
	CapClearLandscape
	CapParkProperties
	CapParkFunding
	CapKickPlayer
	CapModifyGroups
	CapSetPlayerGroup
	CapCheat
	CapModifyTile
	CapEditScenarioOptions
	capabilityCount
)

var capabilityNames = [...]string{
	CapNone:                "none",
	CapChat:                "chat",
	CapTerraform:           "terraform",
	CapTogglePause:         "toggle_pause",
	CapCreateRide:          "create_ride",
	CapRemoveRide:          "remove_ride",
	CapBuildRide:           "build_ride",
	CapRideProperties:      "ride_properties",
	CapScenery:             "scenery",
	CapPath:                "path",
	CapClearLandscape:      "clear_landscape",
	CapParkProperties:      "park_properties",
	CapParkFunding:         "park_funding",
	CapKickPlayer:          "kick_player",
	CapModifyGroups:        "modify_groups",
	CapSetPlayerGroup:      "set_player_group",
	CapCheat:               "cheat",
	CapModifyTile:          "modify_tile",
	CapEditScenarioOptions: "edit_scenario_options",
}

func (c Capability) String() string {
	if c < capabilityCount {
		return capabilityNames[c]
	}
	return fmt.Sprintf("capability(%d)", uint8(c))
}

// ParseCapability resolves a capability by name.
func ParseCapability(name string) (Capability, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range capabilityNames {
		if n == name {
			return Capability(i), nil
		}
	}
	return CapNone, fmt.Errorf("unknown capability %q", name)
}

// CapabilitySet is a bitmask of capabilities.
type CapabilitySet uint64

// AllCapabilities grants every capability.
const AllCapabilities CapabilitySet = 1<<capabilityCount - 1

// CapabilitiesOf builds a set.
func CapabilitiesOf(caps ...Capability) CapabilitySet {
	var s CapabilitySet
	for _, c := range caps {
		s |= 1 << c
	}
	return s
}

// Has reports whether c is in the set. CapNone is always present.
func (s CapabilitySet) Has(c Capability) bool {
	return c == CapNone || s&(1<<c) != 0
}

// With returns the set plus c.
func (s CapabilitySet) With(c Capability) CapabilitySet {
	return s | 1<<c
}

// Len counts granted capabilities.
func (s CapabilitySet) Len() int {
	return bits.OnesCount64(uint64(s &^ 1))
}

// Names lists the granted capabilities, sorted.
func (s CapabilitySet) Names() []string {
	var out []string
	for c := CapNone + 1; c < capabilityCount; c++ {
		if s.Has(c) {
			out = append(out, c.String())
		}
	}
	sort.Strings(out)
	return out
}
