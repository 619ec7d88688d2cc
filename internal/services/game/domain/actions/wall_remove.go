package actions

import (
	"github.com/louisbranch/parkline/internal/services/game/domain/command"
	"github.com/louisbranch/parkline/internal/services/game/domain/money"
	"github.com/louisbranch/parkline/internal/services/game/domain/world"
)

const msgWallRemoveFailed = "WALL_REMOVE_FAILED"

// WallRemove removes the wall at Loc facing Loc.Direction. A ghost removal
// only targets ghost walls.
type WallRemove struct {
	Loc world.CoordsXYZD
}

func (*WallRemove) Type() command.Type             { return TypeWallRemove }
func (*WallRemove) Flags() command.Flags           { return 0 }
func (*WallRemove) Capability() command.Capability { return command.CapScenery }

func (c *WallRemove) result(view world.View, status command.Status, detail string) command.Result {
	var r command.Result
	if status == command.StatusOk {
		r = command.Ok()
	} else {
		r = command.Fail(status, msgWallRemoveFailed, detail)
	}
	r.Expenditure = money.ExpenditureLandscaping
	return r.At(tileCentre(c.Loc.XY(), view.SurfaceHeight(c.Loc.XY())))
}

func (c *WallRemove) find(view world.View, ghost bool) (world.Element, bool) {
	for _, el := range view.ElementsAt(c.Loc.XY()) {
		if el.Type == world.ElementWall && el.BaseZ == c.Loc.Z && el.Direction == c.Loc.Direction && el.Ghost == ghost {
			return el, true
		}
	}
	return world.Element{}, false
}

func (c *WallRemove) Validate(view world.View, ctx command.Context) command.Result {
	if !view.IsLocationValid(c.Loc.XY()) {
		return c.result(view, command.StatusInvalidParameters, "INVALID_LOCATION")
	}
	ghost := ctx.Ghost()
	if !ghost && !view.InEditor() && !view.Cheats().SandboxMode && !view.IsLocationOwned(c.Loc.XYZ()) {
		return c.result(view, command.StatusNotOwned, "LAND_NOT_OWNED_BY_PARK")
	}
	if _, ok := c.find(view, ghost); !ok {
		return c.result(view, command.StatusInvalidParameters, "WALL_NOT_FOUND")
	}
	return c.result(view, command.StatusOk, "")
}

func (c *WallRemove) Apply(m world.Mutator, ctx command.Context) command.Result {
	el, ok := c.find(m, ctx.Ghost())
	if !ok || !m.RemoveElement(c.Loc.XY(), el) {
		return c.result(m, command.StatusInvalidParameters, "WALL_NOT_FOUND")
	}
	m.Emit(world.Effect{Kind: world.EffectInvalidateTile, At: c.Loc.XYZ()})
	return c.result(m, command.StatusOk, "")
}

func (c *WallRemove) MarshalFields(enc *command.Encoder) {
	writeCoords(enc, c.Loc)
}

func (c *WallRemove) UnmarshalFields(dec *command.Decoder) error {
	loc, err := readCoords(dec)
	if err != nil {
		return err
	}
	c.Loc = loc
	return nil
}
