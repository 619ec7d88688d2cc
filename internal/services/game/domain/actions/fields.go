package actions

import (
	"fmt"

	"github.com/louisbranch/parkline/internal/services/game/domain/command"
	"github.com/louisbranch/parkline/internal/services/game/domain/world"
)

func writeCoords(enc *command.Encoder, loc world.CoordsXYZD) {
	enc.Int(int64(loc.X))
	enc.Int(int64(loc.Y))
	enc.Int(int64(loc.Z))
	enc.Uint(uint64(loc.Direction))
}

func readCoords(dec *command.Decoder) (world.CoordsXYZD, error) {
	loc := world.CoordsXYZD{X: dec.Int32(), Y: dec.Int32(), Z: dec.Int32(), Direction: dec.Uint8()}
	if err := dec.Err(); err != nil {
		return world.CoordsXYZD{}, err
	}
	if loc.Direction > 3 {
		return world.CoordsXYZD{}, fmt.Errorf("direction %d out of range", loc.Direction)
	}
	return loc, nil
}

// tileCentre is the feedback position for a tile: its centre at the given
// height.
func tileCentre(loc world.CoordsXY, z int32) world.CoordsXYZ {
	c := loc.TileCentre()
	return world.CoordsXYZ{X: c.X, Y: c.Y, Z: z}
}
