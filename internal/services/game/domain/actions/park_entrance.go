package actions

import (
	"github.com/louisbranch/parkline/internal/services/game/domain/command"
	"github.com/louisbranch/parkline/internal/services/game/domain/money"
	"github.com/louisbranch/parkline/internal/services/game/domain/world"
)

const (
	parkEntranceHeight   = 12 * world.ZStep
	parkEntranceTiles    = 3
	mapEdgeMargin        = world.TileStep
	msgCantBuildEntrance = "CANT_BUILD_PARK_ENTRANCE_HERE"
)

// PlaceParkEntrance builds a three-tile park entrance centred on Loc and
// facing Loc.Direction.
type PlaceParkEntrance struct {
	Loc      world.CoordsXYZD
	PathType uint16
}

func (*PlaceParkEntrance) Type() command.Type   { return TypePlaceParkEntrance }
func (*PlaceParkEntrance) Flags() command.Flags { return command.FlagEditorOnly }
func (*PlaceParkEntrance) Capability() command.Capability {
	return command.CapEditScenarioOptions
}

// footprint returns the centre tile followed by the two side tiles.
func (c *PlaceParkEntrance) footprint() [parkEntranceTiles]world.CoordsXY {
	centre := c.Loc.XY()
	dir := c.Loc.Direction
	return [parkEntranceTiles]world.CoordsXY{
		centre,
		centre.Add(world.DirectionDelta[(dir-1)&3]),
		centre.Add(world.DirectionDelta[(dir+1)&3]),
	}
}

func (c *PlaceParkEntrance) success() command.Result {
	r := command.Ok().At(c.Loc.XYZ())
	r.Expenditure = money.ExpenditureLandPurchase
	return r
}

func (c *PlaceParkEntrance) fail(status command.Status, detail string) command.Result {
	r := command.Fail(status, msgCantBuildEntrance, detail).At(c.Loc.XYZ())
	r.Expenditure = money.ExpenditureLandPurchase
	return r
}

func (c *PlaceParkEntrance) Validate(view world.View, _ command.Context) command.Result {
	if !view.InEditor() && !view.Cheats().SandboxMode {
		return c.fail(command.StatusNotInEditorMode, command.MsgNotInEditorMode)
	}
	if view.FreeElements() < parkEntranceTiles {
		return c.fail(command.StatusNoFreeElements, "NO_FREE_ELEMENTS")
	}

	loc := c.Loc.XY()
	size := view.MapSizeUnits()
	if !view.IsLocationValid(loc) || loc.X <= mapEdgeMargin || loc.Y <= mapEdgeMargin ||
		loc.X >= size-mapEdgeMargin || loc.Y >= size-mapEdgeMargin {
		return c.fail(command.StatusInvalidParameters, "TOO_CLOSE_TO_EDGE_OF_MAP")
	}
	if len(view.ParkEntrances()) >= world.MaxParkEntrances {
		return c.fail(command.StatusInvalidParameters, "TOO_MANY_PARK_ENTRANCES")
	}

	zLow := c.Loc.Z
	zHigh := zLow + parkEntranceHeight
	for _, at := range c.footprint() {
		pos := world.CoordsXYZ{X: at.X, Y: at.Y, Z: zLow}
		if _, exists := view.ParkEntranceAt(pos); exists {
			return c.fail(command.StatusItemAlreadyPlaced, "PARK_ENTRANCE_ALREADY_HERE")
		}
		switch view.CanConstructAt(pos, zHigh, world.AllQuadrants) {
		case world.ClearanceUnderground:
			return c.fail(command.StatusNoClearance, "CANT_BUILD_UNDERGROUND")
		case world.ClearanceBlocked:
			return c.fail(command.StatusNoClearance, "OBJECT_IN_THE_WAY")
		}
	}
	return c.success()
}

func (c *PlaceParkEntrance) Apply(m world.Mutator, ctx command.Context) command.Result {
	ghost := ctx.Ghost()
	if !ghost {
		m.AddParkEntrance(c.Loc)
	}

	zLow := c.Loc.Z
	for i, at := range c.footprint() {
		if !ghost {
			m.SetOwnership(at, world.OwnershipUnowned)
		}
		el := world.Element{
			Type:         world.ElementEntrance,
			BaseZ:        zLow,
			ClearanceZ:   zLow + parkEntranceHeight,
			Direction:    c.Loc.Direction,
			Quadrants:    world.AllQuadrants,
			Sequence:     uint8(i),
			EntranceType: world.EntranceTypeParkEntrance,
			PathType:     c.PathType,
			Ghost:        ghost,
		}
		if err := m.InsertElement(at, el); err != nil {
			return c.fail(command.StatusNoFreeElements, "NO_FREE_ELEMENTS")
		}
		m.Emit(world.Effect{Kind: world.EffectInvalidateTile, At: world.CoordsXYZ{X: at.X, Y: at.Y, Z: zLow}})
		if i == 0 {
			m.Emit(world.Effect{Kind: world.EffectAnimation, At: c.Loc.XYZ()})
		}
	}
	return c.success()
}

func (c *PlaceParkEntrance) MarshalFields(enc *command.Encoder) {
	writeCoords(enc, c.Loc)
	enc.Uint(uint64(c.PathType))
}

func (c *PlaceParkEntrance) UnmarshalFields(dec *command.Decoder) error {
	loc, err := readCoords(dec)
	if err != nil {
		return err
	}
	c.Loc = loc
	c.PathType = dec.Uint16()
	return dec.Err()
}
