package world

import "github.com/louisbranch/parkline/internal/services/game/domain/money"

// Ghost wraps s so that applying a command previews it. Element writes land
// in the ghost layer, and every other durable write is dropped.
func Ghost(s *State) Mutator {
	return ghostMutator{State: s}
}

type ghostMutator struct {
	*State
}

func (g ghostMutator) InsertElement(loc CoordsXY, el Element) error {
	el.Ghost = true
	return g.State.InsertElement(loc, el)
}

func (g ghostMutator) RemoveElement(loc CoordsXY, el Element) bool {
	if !el.Ghost {
		return false
	}
	return g.State.RemoveElement(loc, el)
}

func (ghostMutator) SetOwnership(CoordsXY, Ownership)     {}
func (ghostMutator) AddParkEntrance(CoordsXYZD)           {}
func (ghostMutator) PutRide(Ride)                         {}
func (ghostMutator) SetCheats(Cheats)                     {}
func (ghostMutator) SetPaused(bool)                       {}
func (ghostMutator) SetCash(money.Money)                  {}
func (ghostMutator) Spend(money.Money, money.Expenditure) {}
func (ghostMutator) PutPlayer(Player)                     {}

// NextRandom peeks at the stream without advancing it.
func (g ghostMutator) NextRandom() uint32 {
	r := g.State.random
	return r.Next()
}
