package world

import "github.com/louisbranch/parkline/internal/services/game/domain/money"

// MaxParkEntrances bounds the number of park entrances.
const MaxParkEntrances = 256

// View is the read-only world surface available to validation.
type View interface {
	MapSizeUnits() int32
	IsLocationValid(loc CoordsXY) bool
	InEditor() bool
	Paused() bool
	Tick() uint64
	Cheats() Cheats
	Ownership(loc CoordsXY) Ownership
	IsLocationOwned(loc CoordsXYZ) bool
	SurfaceHeight(loc CoordsXY) int32
	FreeElements() int
	// ElementsAt returns durable and ghost elements of the tile containing loc.
	ElementsAt(loc CoordsXY) []Element
	// ParkEntranceAt ignores ghost elements.
	ParkEntranceAt(loc CoordsXYZ) (Element, bool)
	CanConstructAt(loc CoordsXYZ, clearanceZ int32, quadrants uint8) Clearance
	ParkEntrances() []CoordsXYZD
	Ride(id RideID) (Ride, bool)
	Rides() []Ride
	RideEntry(id RideEntryID) (RideEntry, bool)
	RideEntries() []RideEntry
	IsFlatRideType(t RideType) bool
	Cash() money.Money
	Player(id PlayerID) (Player, bool)
	GroupName(id GroupID) (string, bool)
}

// Mutator extends View with the primitives apply uses to change the world.
type Mutator interface {
	View
	InsertElement(loc CoordsXY, el Element) error
	RemoveElement(loc CoordsXY, el Element) bool
	SetOwnership(loc CoordsXY, ownership Ownership)
	AddParkEntrance(loc CoordsXYZD)
	PutRide(ride Ride)
	SetCheats(cheats Cheats)
	SetPaused(paused bool)
	SetCash(cash money.Money)
	Spend(amount money.Money, category money.Expenditure)
	PutPlayer(player Player)
	NextRandom() uint32
	Emit(effect Effect)
}
