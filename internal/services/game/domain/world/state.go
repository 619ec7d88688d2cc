package world

import (
	"errors"
	"slices"

	"github.com/louisbranch/parkline/internal/services/game/domain/money"
)

// ErrNoFreeElements is returned when the element pool is exhausted.
var ErrNoFreeElements = errors.New("no free tile elements")

// DefaultMapSize is the default map edge length in tiles.
const DefaultMapSize = 150

// DefaultMaxElements is the default element pool size.
const DefaultMaxElements = 0x30000

// Options configures a new State.
type Options struct {
	SizeTiles   int32
	Editor      bool
	Cash        money.Money
	MaxElements int
	Seed        uint32
	// Ownership and SurfaceZ apply to every tile that was never written.
	Ownership   Ownership
	SurfaceZ    int32
	Groups      map[GroupID]string
	RideEntries []RideEntry
	Rides       []Ride
	// FlatRideTypes lists ride types without track, which cannot share vehicles.
	FlatRideTypes []RideType
}

// State is the in-memory world. It is owned by a single goroutine; callers
// that share it must serialize access.
type State struct {
	sizeTiles        int32
	editor           bool
	paused           bool
	tick             uint64
	cheats           Cheats
	cash             money.Money
	expenditures     map[money.Expenditure]money.Money
	maxElements      int
	elementCount     int
	defaultOwnership Ownership
	defaultHeight    int32
	tiles            map[CoordsXY]*Tile
	ghosts           map[CoordsXY][]Element
	entrances        []CoordsXYZD
	rides            map[RideID]Ride
	rideEntries      map[RideEntryID]RideEntry
	flatRideTypes    map[RideType]bool
	players          map[PlayerID]Player
	groups           map[GroupID]string
	random           Random
	effects          []Effect
}

// NewState builds a world from options.
func NewState(opts Options) *State {
	if opts.SizeTiles <= 0 {
		opts.SizeTiles = DefaultMapSize
	}
	if opts.MaxElements <= 0 {
		opts.MaxElements = DefaultMaxElements
	}
	s := &State{
		sizeTiles:        opts.SizeTiles,
		editor:           opts.Editor,
		cash:             opts.Cash,
		expenditures:     make(map[money.Expenditure]money.Money),
		maxElements:      opts.MaxElements,
		defaultOwnership: opts.Ownership,
		defaultHeight:    opts.SurfaceZ,
		tiles:            make(map[CoordsXY]*Tile),
		ghosts:           make(map[CoordsXY][]Element),
		rides:            make(map[RideID]Ride),
		rideEntries:      make(map[RideEntryID]RideEntry),
		flatRideTypes:    make(map[RideType]bool),
		players:          make(map[PlayerID]Player),
		groups:           make(map[GroupID]string),
		random:           newRandom(opts.Seed),
	}
	for id, name := range opts.Groups {
		s.groups[id] = name
	}
	for _, entry := range opts.RideEntries {
		s.rideEntries[entry.ID] = entry
	}
	for _, ride := range opts.Rides {
		s.rides[ride.ID] = ride
	}
	for _, t := range opts.FlatRideTypes {
		s.flatRideTypes[t] = true
	}
	return s
}

func (s *State) MapSizeUnits() int32 { return (s.sizeTiles - 1) * TileStep }

func (s *State) IsLocationValid(loc CoordsXY) bool {
	limit := s.sizeTiles * TileStep
	return loc.X >= 0 && loc.Y >= 0 && loc.X < limit && loc.Y < limit
}

func (s *State) InEditor() bool { return s.editor }
func (s *State) Paused() bool   { return s.paused }
func (s *State) Tick() uint64   { return s.tick }
func (s *State) Cheats() Cheats { return s.cheats }
func (s *State) FreeElements() int {
	return s.maxElements - s.elementCount
}

// SetEditor toggles scenario editor mode. It is a session setting, not a
// command effect.
func (s *State) SetEditor(editor bool) { s.editor = editor }

// AdvanceTick moves the simulation clock forward by one tick.
func (s *State) AdvanceTick() { s.tick++ }

func (s *State) tile(loc CoordsXY) (*Tile, bool) {
	t, ok := s.tiles[loc.TileStart()]
	return t, ok
}

func (s *State) mutableTile(loc CoordsXY) *Tile {
	key := loc.TileStart()
	if t, ok := s.tiles[key]; ok {
		return t
	}
	t := &Tile{Ownership: s.defaultOwnership, Height: s.defaultHeight}
	s.tiles[key] = t
	return t
}

func (s *State) Ownership(loc CoordsXY) Ownership {
	if t, ok := s.tile(loc); ok {
		return t.Ownership
	}
	return s.defaultOwnership
}

func (s *State) SurfaceHeight(loc CoordsXY) int32 {
	if t, ok := s.tile(loc); ok {
		return t.Height
	}
	return s.defaultHeight
}

func (s *State) IsLocationOwned(loc CoordsXYZ) bool {
	if !s.IsLocationValid(loc.XY()) {
		return false
	}
	switch s.Ownership(loc.XY()) {
	case OwnershipOwned:
		return true
	case OwnershipConstructionRights:
		height := s.SurfaceHeight(loc.XY())
		return loc.Z < height || loc.Z-landHeightStep > height
	default:
		return false
	}
}

func (s *State) ElementsAt(loc CoordsXY) []Element {
	var out []Element
	if t, ok := s.tile(loc); ok {
		out = append(out, t.Elements...)
	}
	out = append(out, s.ghosts[loc.TileStart()]...)
	return out
}

func (s *State) ParkEntranceAt(loc CoordsXYZ) (Element, bool) {
	t, ok := s.tile(loc.XY())
	if !ok {
		return Element{}, false
	}
	for _, el := range t.Elements {
		if el.Type == ElementEntrance && el.EntranceType == EntranceTypeParkEntrance && el.BaseZ == loc.Z {
			return el, true
		}
	}
	return Element{}, false
}

func (s *State) CanConstructAt(loc CoordsXYZ, clearanceZ int32, quadrants uint8) Clearance {
	if loc.Z < s.SurfaceHeight(loc.XY()) {
		return ClearanceUnderground
	}
	t, ok := s.tile(loc.XY())
	if !ok {
		return ClearanceOK
	}
	for _, el := range t.Elements {
		if overlaps(el, loc.Z, clearanceZ, quadrants) {
			return ClearanceBlocked
		}
	}
	return ClearanceOK
}

func (s *State) ParkEntrances() []CoordsXYZD {
	return slices.Clone(s.entrances)
}

func (s *State) Ride(id RideID) (Ride, bool) {
	r, ok := s.rides[id]
	return r, ok
}

func (s *State) Rides() []Ride {
	out := make([]Ride, 0, len(s.rides))
	for _, r := range s.rides {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b Ride) int { return int(a.ID) - int(b.ID) })
	return out
}

func (s *State) RideEntry(id RideEntryID) (RideEntry, bool) {
	e, ok := s.rideEntries[id]
	return e, ok
}

func (s *State) IsFlatRideType(t RideType) bool { return s.flatRideTypes[t] }

func (s *State) RideEntries() []RideEntry {
	out := make([]RideEntry, 0, len(s.rideEntries))
	for _, e := range s.rideEntries {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b RideEntry) int { return int(a.ID) - int(b.ID) })
	return out
}

func (s *State) Cash() money.Money { return s.cash }

// Expenditure returns the accumulated spend for a category.
func (s *State) Expenditure(category money.Expenditure) money.Money {
	return s.expenditures[category]
}

func (s *State) Player(id PlayerID) (Player, bool) {
	p, ok := s.players[id]
	return p, ok
}

func (s *State) GroupName(id GroupID) (string, bool) {
	name, ok := s.groups[id]
	return name, ok
}

func (s *State) InsertElement(loc CoordsXY, el Element) error {
	if el.Ghost {
		key := loc.TileStart()
		s.ghosts[key] = append(s.ghosts[key], el)
		return nil
	}
	if s.elementCount >= s.maxElements {
		return ErrNoFreeElements
	}
	t := s.mutableTile(loc)
	t.Elements = append(t.Elements, el)
	s.elementCount++
	return nil
}

func (s *State) RemoveElement(loc CoordsXY, el Element) bool {
	key := loc.TileStart()
	if el.Ghost {
		ghosts := s.ghosts[key]
		i := slices.Index(ghosts, el)
		if i < 0 {
			return false
		}
		ghosts = slices.Delete(ghosts, i, i+1)
		if len(ghosts) == 0 {
			delete(s.ghosts, key)
		} else {
			s.ghosts[key] = ghosts
		}
		return true
	}
	t, ok := s.tiles[key]
	if !ok {
		return false
	}
	i := slices.Index(t.Elements, el)
	if i < 0 {
		return false
	}
	t.Elements = slices.Delete(t.Elements, i, i+1)
	s.elementCount--
	return true
}

func (s *State) SetOwnership(loc CoordsXY, ownership Ownership) {
	s.mutableTile(loc).Ownership = ownership
}

// SetSurfaceHeight sets the base height of a tile's surface.
func (s *State) SetSurfaceHeight(loc CoordsXY, height int32) {
	s.mutableTile(loc).Height = height
}

func (s *State) AddParkEntrance(loc CoordsXYZD) {
	s.entrances = append(s.entrances, loc)
}

func (s *State) PutRide(ride Ride) { s.rides[ride.ID] = ride }

func (s *State) SetCheats(cheats Cheats) { s.cheats = cheats }

func (s *State) SetPaused(paused bool) { s.paused = paused }

func (s *State) SetCash(cash money.Money) { s.cash = cash }

func (s *State) Spend(amount money.Money, category money.Expenditure) {
	if s.cheats.NoMoney {
		return
	}
	s.cash = s.cash.Sub(amount)
	s.expenditures[category] = s.expenditures[category].Add(amount)
}

func (s *State) PutPlayer(player Player) { s.players[player.ID] = player }

func (s *State) NextRandom() uint32 { return s.random.Next() }

func (s *State) Emit(effect Effect) { s.effects = append(s.effects, effect) }

// ClearGhosts drops every ghost element.
func (s *State) ClearGhosts() {
	clear(s.ghosts)
}

// DrainEffects returns and resets the pending presentation effects.
func (s *State) DrainEffects() []Effect {
	out := s.effects
	s.effects = nil
	return out
}

// Clone returns a deep copy of the durable state. Ghosts and effects are not
// carried over.
func (s *State) Clone() *State {
	return FromSnapshot(s.Snapshot())
}

var _ Mutator = (*State)(nil)
