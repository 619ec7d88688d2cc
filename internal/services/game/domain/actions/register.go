package actions

import (
	"fmt"

	"github.com/louisbranch/parkline/internal/services/game/domain/command"
)

// Wire type ids. They never change once released.
const (
	TypePauseToggle       command.Type = 0x01
	TypeRideSetVehicle    command.Type = 0x09
	TypeWallRemove        command.Type = 0x10
	TypePlaceParkEntrance command.Type = 0x2A
	TypeSetCheat          command.Type = 0x41
	TypePlayerSetGroup    command.Type = 0x45
	TypePlayerJoin        command.Type = 0x50
)

// Definitions lists every command kind.
func Definitions() []command.Definition {
	return []command.Definition{
		{Type: TypePauseToggle, Name: "pause_toggle", New: func() command.Command { return &PauseToggle{} }},
		{Type: TypeRideSetVehicle, Name: "ride_set_vehicle", New: func() command.Command { return &RideSetVehicle{} }},
		{Type: TypeWallRemove, Name: "wall_remove", New: func() command.Command { return &WallRemove{} }},
		{Type: TypePlaceParkEntrance, Name: "place_park_entrance", New: func() command.Command { return &PlaceParkEntrance{} }},
		{Type: TypeSetCheat, Name: "set_cheat", New: func() command.Command { return &SetCheat{} }},
		{Type: TypePlayerSetGroup, Name: "player_set_group", New: func() command.Command { return &PlayerSetGroup{} }},
		{Type: TypePlayerJoin, Name: "player_join", New: func() command.Command { return &PlayerJoin{} }},
	}
}

// Register adds every kind to r.
func Register(r *command.Registry) error {
	for _, def := range Definitions() {
		if err := r.Register(def); err != nil {
			return fmt.Errorf("register %s: %w", def.Name, err)
		}
	}
	return nil
}

// NewRegistry returns a registry holding every kind.
func NewRegistry() (*command.Registry, error) {
	r := command.NewRegistry()
	if err := Register(r); err != nil {
		return nil, err
	}
	return r, nil
}
