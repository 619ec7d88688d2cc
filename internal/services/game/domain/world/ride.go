package world

import "github.com/louisbranch/parkline/internal/services/game/domain/money"

// RideID identifies a ride instance in the park.
type RideID uint16

// RideEntryID identifies a vehicle/ride object definition.
type RideEntryID uint16

// RideType identifies a ride's track family.
type RideType uint8

// RideStatus is the operating status of a ride.
type RideStatus uint8

const (
	RideStatusClosed RideStatus = iota
	RideStatusOpen
	RideStatusTesting
	RideStatusSimulating
)

// Lifecycle flags.
const (
	LifecycleBrokenDown uint32 = 1 << iota
	LifecycleCrashed
	LifecycleReversedTrains
	LifecycleTestInProgress
)

// MaxTrainsPerRide bounds the number of trains a ride can run.
const MaxTrainsPerRide = 31

// Ride is the mutable configuration of one ride.
type Ride struct {
	ID                   RideID      `json:"id"`
	Type                 RideType    `json:"type"`
	Subtype              RideEntryID `json:"subtype"`
	Status               RideStatus  `json:"status"`
	Lifecycle            uint32      `json:"lifecycle"`
	ProposedNumTrains    uint8       `json:"proposed_num_trains"`
	ProposedCarsPerTrain uint8       `json:"proposed_cars_per_train"`
	VehicleChangeTimeout uint8       `json:"vehicle_change_timeout"`
	NumCircuits          uint8       `json:"num_circuits"`
	ColourPreset         uint8       `json:"colour_preset"`
	OverallView          *CoordsXY   `json:"overall_view,omitempty"`
}

// HasLifecycle reports whether all bits of flag are set.
func (r Ride) HasLifecycle(flag uint32) bool {
	return r.Lifecycle&flag == flag
}

// RideEntry is the static definition of a ride's vehicles.
type RideEntry struct {
	ID              RideEntryID `json:"id"`
	RideType        RideType    `json:"ride_type"`
	MinCarsPerTrain uint8       `json:"min_cars_per_train"`
	MaxCarsPerTrain uint8       `json:"max_cars_per_train"`
	ColourPresets   uint8       `json:"colour_presets"`
	Invented        bool        `json:"invented"`
	CostPerCar      money.Money `json:"cost_per_car"`
}

// ClampCars bounds cars to the entry's train length limits.
func (e RideEntry) ClampCars(cars uint8) uint8 {
	if cars < e.MinCarsPerTrain {
		return e.MinCarsPerTrain
	}
	if cars > e.MaxCarsPerTrain {
		return e.MaxCarsPerTrain
	}
	return cars
}
