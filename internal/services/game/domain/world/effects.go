package world

// EffectKind classifies a presentation side effect emitted by apply.
type EffectKind uint8

const (
	EffectInvalidateTile EffectKind = iota + 1
	EffectAnimation
	EffectRepaintRide
)

// Effect is a presentation hint. Effects are not part of durable state and
// never enter the checksum.
type Effect struct {
	Kind EffectKind `json:"kind"`
	At   CoordsXYZ  `json:"at"`
	Ride RideID     `json:"ride,omitempty"`
}
