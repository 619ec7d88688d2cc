package world

// PlayerID identifies a participant.
type PlayerID uint32

// HostPlayerID is the participant running the authority.
const HostPlayerID PlayerID = 0

// GroupID identifies a permission group.
type GroupID uint8

// Player is a connected or previously connected participant.
type Player struct {
	ID    PlayerID `json:"id"`
	Name  string   `json:"name"`
	Group GroupID  `json:"group"`
}
