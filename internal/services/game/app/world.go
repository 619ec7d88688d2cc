package server

import (
	"github.com/louisbranch/parkline/internal/services/game/domain/authz"
	"github.com/louisbranch/parkline/internal/services/game/domain/money"
	"github.com/louisbranch/parkline/internal/services/game/domain/world"
)

// defaultRideEntries is the vehicle catalogue every park starts with.
var defaultRideEntries = []world.RideEntry{
	{ID: 1, RideType: 1, MinCarsPerTrain: 1, MaxCarsPerTrain: 8, ColourPresets: 4, Invented: true, CostPerCar: money.FromUnits(40)},
	{ID: 2, RideType: 1, MinCarsPerTrain: 2, MaxCarsPerTrain: 6, ColourPresets: 2, Invented: true, CostPerCar: money.FromUnits(55)},
	{ID: 3, RideType: 2, MinCarsPerTrain: 1, MaxCarsPerTrain: 1, ColourPresets: 1, Invented: true},
	{ID: 4, RideType: 3, MinCarsPerTrain: 1, MaxCarsPerTrain: 4, ColourPresets: 3},
}

// flatRideTypes have no track; ride type 2 is the carousel family.
var flatRideTypes = []world.RideType{2}

// NewWorld builds the park a log starts from. It is deterministic in park
// and policy so replaying a log always starts from the same world.
func NewWorld(park ParkConfig, policy *authz.Policy) *world.State {
	state := world.NewState(world.Options{
		SizeTiles:     park.MapSize,
		Editor:        park.Editor,
		Cash:          money.FromUnits(park.StartingCash),
		MaxElements:   park.MaxElements,
		Seed:          park.Seed,
		Ownership:     world.OwnershipOwned,
		Groups:        policy.GroupNames(),
		RideEntries:   defaultRideEntries,
		FlatRideTypes: flatRideTypes,
	})
	state.PutPlayer(world.Player{ID: world.HostPlayerID, Name: park.HostName, Group: authz.GroupAdmin})
	return state
}
