package actions

import (
	"fmt"
	"strconv"

	"github.com/louisbranch/parkline/internal/services/game/domain/command"
	"github.com/louisbranch/parkline/internal/services/game/domain/money"
	"github.com/louisbranch/parkline/internal/services/game/domain/world"
)

// VehicleSetting selects which part of a ride's vehicles RideSetVehicle
// changes.
type VehicleSetting uint8

const (
	VehicleNumTrains VehicleSetting = iota
	VehicleNumCarsPerTrain
	VehicleRideEntry
	VehicleTrainsReversed
	vehicleSettingCount
)

// RandomColourPreset asks apply to pick a preset from the world's random
// stream.
const RandomColourPreset uint8 = 255

const vehicleChangeTimeout = 100

var vehicleSettingTitles = [vehicleSettingCount]string{
	VehicleNumTrains:       "RIDE_SET_NUM_TRAINS_FAILED",
	VehicleNumCarsPerTrain: "RIDE_SET_NUM_CARS_FAILED",
	VehicleRideEntry:       "RIDE_SET_VEHICLE_TYPE_FAILED",
	VehicleTrainsReversed:  "RIDE_SET_TRAINS_REVERSED_FAILED",
}

// RideSetVehicle changes the train count, train length, vehicle type or train
// direction of a closed ride. Added cars are paid for.
type RideSetVehicle struct {
	Ride    world.RideID
	Setting VehicleSetting
	Value   uint16
	Colour  uint8
}

func (*RideSetVehicle) Type() command.Type             { return TypeRideSetVehicle }
func (*RideSetVehicle) Flags() command.Flags           { return command.FlagAllowWhilePaused }
func (*RideSetVehicle) Capability() command.Capability { return command.CapRideProperties }

func (c *RideSetVehicle) fail(status command.Status, detail string) command.Result {
	title := "RIDE_SET_VEHICLE_TYPE_FAILED"
	if c.Setting < vehicleSettingCount {
		title = vehicleSettingTitles[c.Setting]
	}
	r := command.Fail(status, title, detail)
	r.Expenditure = money.ExpenditureRideConstruction
	return r
}

// configure computes the ride after the change and what the added cars cost.
// It reads nothing but its arguments, so validate and apply agree.
func (c *RideSetVehicle) configure(ride world.Ride, view world.View) (world.Ride, money.Money, command.Result) {
	cheats := view.Cheats()
	before := trainCars(ride)
	ride.VehicleChangeTimeout = vehicleChangeTimeout
	ride.NumCircuits = 1

	switch c.Setting {
	case VehicleNumTrains:
		if c.Value == 0 || c.Value > world.MaxTrainsPerRide {
			return ride, 0, c.fail(command.StatusInvalidParameters, "INVALID_VEHICLE_SETTING")
		}
		ride.ProposedNumTrains = uint8(c.Value)
	case VehicleNumCarsPerTrain:
		if c.Value > 0xFF {
			return ride, 0, c.fail(command.StatusInvalidParameters, "INVALID_VEHICLE_SETTING")
		}
		entry, ok := view.RideEntry(ride.Subtype)
		if !ok {
			return ride, 0, c.fail(command.StatusInvalidParameters, "INVALID_VEHICLE_TYPE")
		}
		cars := uint8(c.Value)
		if !cheats.DisableTrainLengthLimit {
			cars = entry.ClampCars(cars)
		}
		ride.ProposedCarsPerTrain = cars
	case VehicleRideEntry:
		if !vehicleTypeAllowed(view, ride, world.RideEntryID(c.Value)) {
			return ride, 0, c.fail(command.StatusInvalidParameters, "INVALID_VEHICLE_TYPE")
		}
		entry, _ := view.RideEntry(world.RideEntryID(c.Value))
		if c.Colour >= entry.ColourPresets && c.Colour != RandomColourPreset && c.Colour != 0 {
			return ride, 0, c.fail(command.StatusInvalidParameters, "INVALID_COLOUR_PRESET")
		}
		ride.Subtype = entry.ID
		ride.ColourPreset = c.Colour
		if !cheats.DisableTrainLengthLimit {
			ride.ProposedCarsPerTrain = entry.ClampCars(ride.ProposedCarsPerTrain)
		}
	case VehicleTrainsReversed:
		switch c.Value {
		case 0:
			ride.Lifecycle &^= world.LifecycleReversedTrains
		case 1:
			ride.Lifecycle |= world.LifecycleReversedTrains
		default:
			return ride, 0, c.fail(command.StatusInvalidParameters, "INVALID_VEHICLE_SETTING")
		}
	default:
		return ride, 0, c.fail(command.StatusInvalidParameters, "INVALID_VEHICLE_SETTING")
	}

	var cost money.Money
	if added := trainCars(ride) - before; added > 0 {
		if entry, ok := view.RideEntry(ride.Subtype); ok {
			cost = entry.CostPerCar.Mul(added)
		}
	}
	return ride, cost, command.Ok()
}

func trainCars(r world.Ride) int64 {
	trains := int64(r.ProposedNumTrains)
	if trains < 1 {
		trains = 1
	}
	return trains * int64(r.ProposedCarsPerTrain)
}

// vehicleTypeAllowed reports whether entry may be fitted to ride. With the
// other-track-types cheat a ride of a tracked type accepts entries of any
// tracked type.
func vehicleTypeAllowed(view world.View, ride world.Ride, id world.RideEntryID) bool {
	entry, ok := view.RideEntry(id)
	if !ok {
		return false
	}
	cheats := view.Cheats()
	if !entry.Invented && !cheats.IgnoreResearchStatus {
		return false
	}
	if entry.RideType == ride.Type {
		return true
	}
	if !cheats.ShowVehiclesFromOtherTrackTypes || view.IsFlatRideType(ride.Type) {
		return false
	}
	return !view.IsFlatRideType(entry.RideType)
}

func (c *RideSetVehicle) position(view world.View, ride world.Ride) *world.CoordsXYZ {
	if ride.OverallView == nil {
		return nil
	}
	pos := tileCentre(*ride.OverallView, view.SurfaceHeight(*ride.OverallView))
	return &pos
}

func (c *RideSetVehicle) Validate(view world.View, _ command.Context) command.Result {
	ride, ok := view.Ride(c.Ride)
	if !ok {
		return c.fail(command.StatusInvalidParameters, "RIDE_NOT_FOUND").WithArg("Ride", strconv.Itoa(int(c.Ride)))
	}
	if ride.HasLifecycle(world.LifecycleBrokenDown) {
		return c.fail(command.StatusBroken, "RIDE_BROKEN_DOWN")
	}
	if ride.Status != world.RideStatusClosed && ride.Status != world.RideStatusSimulating {
		return c.fail(command.StatusNotClosed, "RIDE_MUST_BE_CLOSED")
	}

	_, cost, res := c.configure(ride, view)
	if !res.Succeeded() {
		return res
	}
	if cost > 0 && !view.Cheats().NoMoney && view.Cash() < cost {
		return c.fail(command.StatusInsufficientFunds, command.MsgNotEnoughCash).WithArg("Cost", cost.String())
	}
	return command.Result{
		Status:      command.StatusOk,
		Cost:        cost,
		Expenditure: money.ExpenditureRideConstruction,
		Position:    c.position(view, ride),
	}
}

func (c *RideSetVehicle) Apply(m world.Mutator, ctx command.Context) command.Result {
	ride, ok := m.Ride(c.Ride)
	if !ok {
		return c.fail(command.StatusInvalidParameters, "RIDE_NOT_FOUND").WithArg("Ride", strconv.Itoa(int(c.Ride)))
	}
	updated, cost, res := c.configure(ride, m)
	if !res.Succeeded() {
		return res
	}
	if c.Setting == VehicleRideEntry && c.Colour == RandomColourPreset {
		if entry, ok := m.RideEntry(updated.Subtype); ok && entry.ColourPresets > 0 {
			updated.ColourPreset = uint8(m.NextRandom() % uint32(entry.ColourPresets))
		} else {
			updated.ColourPreset = 0
		}
	}

	m.PutRide(updated)
	if cost > 0 && !ctx.Ghost() {
		m.Spend(cost, money.ExpenditureRideConstruction)
	}
	m.Emit(world.Effect{Kind: world.EffectRepaintRide, Ride: c.Ride})
	return command.Result{
		Status:      command.StatusOk,
		Cost:        cost,
		Expenditure: money.ExpenditureRideConstruction,
		Position:    c.position(m, updated),
	}
}

func (c *RideSetVehicle) MarshalFields(enc *command.Encoder) {
	enc.Uint(uint64(c.Ride))
	enc.Uint(uint64(c.Setting))
	enc.Uint(uint64(c.Value))
	enc.Uint(uint64(c.Colour))
}

func (c *RideSetVehicle) UnmarshalFields(dec *command.Decoder) error {
	c.Ride = world.RideID(dec.Uint16())
	c.Setting = VehicleSetting(dec.Uint8())
	c.Value = dec.Uint16()
	c.Colour = dec.Uint8()
	if err := dec.Err(); err != nil {
		return err
	}
	if c.Setting >= vehicleSettingCount {
		return fmt.Errorf("vehicle setting %d out of range", c.Setting)
	}
	return nil
}
