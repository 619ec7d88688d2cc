package world

// TileStep is the width of one tile in world units.
const TileStep = 32

// ZStep is the height of one z level in world units.
const ZStep = 8

// CoordsXY is a horizontal position in world units.
type CoordsXY struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

// CoordsXYZ is a position in world units.
type CoordsXYZ struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
	Z int32 `json:"z"`
}

// CoordsXYZD is a position with a facing direction (0-3).
type CoordsXYZD struct {
	X         int32 `json:"x"`
	Y         int32 `json:"y"`
	Z         int32 `json:"z"`
	Direction uint8 `json:"direction"`
}

// DirectionDelta is the one-tile offset for each direction.
var DirectionDelta = [4]CoordsXY{
	{X: -TileStep, Y: 0},
	{X: 0, Y: TileStep},
	{X: TileStep, Y: 0},
	{X: 0, Y: -TileStep},
}

// Add returns c offset by other.
func (c CoordsXY) Add(other CoordsXY) CoordsXY {
	return CoordsXY{X: c.X + other.X, Y: c.Y + other.Y}
}

// Scale multiplies both axes by n.
func (c CoordsXY) Scale(n int32) CoordsXY {
	return CoordsXY{X: c.X * n, Y: c.Y * n}
}

// TileStart rounds c down to the origin of its tile.
func (c CoordsXY) TileStart() CoordsXY {
	return CoordsXY{X: floorTile(c.X), Y: floorTile(c.Y)}
}

// TileCentre returns the centre of the tile containing c.
func (c CoordsXY) TileCentre() CoordsXY {
	start := c.TileStart()
	return CoordsXY{X: start.X + TileStep/2, Y: start.Y + TileStep/2}
}

// XY drops the z component.
func (c CoordsXYZ) XY() CoordsXY {
	return CoordsXY{X: c.X, Y: c.Y}
}

// XY drops the z and direction components.
func (c CoordsXYZD) XY() CoordsXY {
	return CoordsXY{X: c.X, Y: c.Y}
}

// XYZ drops the direction component.
func (c CoordsXYZD) XYZ() CoordsXYZ {
	return CoordsXYZ{X: c.X, Y: c.Y, Z: c.Z}
}

func floorTile(v int32) int32 {
	if v >= 0 {
		return v - v%TileStep
	}
	return -((-v + TileStep - 1) / TileStep * TileStep)
}
