package world

// ElementType identifies what a tile element represents.
type ElementType uint8

const (
	ElementPath ElementType = iota + 1
	ElementEntrance
	ElementWall
	ElementScenery
	ElementTrack
)

// EntranceType distinguishes park entrances from ride stations.
type EntranceType uint8

const (
	EntranceTypeRideEntrance EntranceType = iota
	EntranceTypeRideExit
	EntranceTypeParkEntrance
)

// AllQuadrants occupies the whole tile.
const AllQuadrants uint8 = 0b1111

// Element is one object stacked on a tile.
type Element struct {
	Type         ElementType  `json:"type"`
	BaseZ        int32        `json:"base_z"`
	ClearanceZ   int32        `json:"clearance_z"`
	Direction    uint8        `json:"direction"`
	Quadrants    uint8        `json:"quadrants"`
	Sequence     uint8        `json:"sequence,omitempty"`
	EntranceType EntranceType `json:"entrance_type,omitempty"`
	PathType     uint16       `json:"path_type,omitempty"`
	Ghost        bool         `json:"ghost,omitempty"`
}

// Ownership is the park's claim over a tile's surface.
type Ownership uint8

const (
	OwnershipUnowned Ownership = iota
	OwnershipConstructionRights
	OwnershipOwned
	OwnershipAvailable
)

// landHeightStep is the band above the surface that construction rights
// leave unowned.
const landHeightStep = 2 * ZStep

// Tile holds the surface data and the durable elements of one tile.
type Tile struct {
	Ownership Ownership `json:"ownership"`
	Height    int32     `json:"height"`
	Elements  []Element `json:"elements,omitempty"`
}

// Clearance is the outcome of a construction clearance query.
type Clearance uint8

const (
	ClearanceOK Clearance = iota
	ClearanceUnderground
	ClearanceBlocked
)

func overlaps(el Element, zLow, zHigh int32, quadrants uint8) bool {
	if el.Quadrants&quadrants == 0 {
		return false
	}
	return zLow < el.ClearanceZ && el.BaseZ < zHigh
}
