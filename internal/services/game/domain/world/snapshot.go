package world

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/louisbranch/parkline/internal/services/game/domain/core/encoding"
	"github.com/louisbranch/parkline/internal/services/game/domain/money"
)

// Snapshot is the serializable form of the durable world. Slices are sorted
// so that equal worlds produce equal bytes.
type Snapshot struct {
	SizeTiles        int32              `json:"size_tiles"`
	Editor           bool               `json:"editor"`
	Paused           bool               `json:"paused"`
	Tick             uint64             `json:"tick"`
	Cheats           Cheats             `json:"cheats"`
	Cash             money.Money        `json:"cash"`
	Expenditures     []ExpenditureTotal `json:"expenditures,omitempty"`
	MaxElements      int                `json:"max_elements"`
	DefaultOwnership Ownership          `json:"default_ownership"`
	DefaultHeight    int32              `json:"default_height"`
	Tiles            []TileRecord       `json:"tiles,omitempty"`
	Entrances        []CoordsXYZD       `json:"entrances,omitempty"`
	Rides            []Ride             `json:"rides,omitempty"`
	RideEntries      []RideEntry        `json:"ride_entries,omitempty"`
	Players          []Player           `json:"players,omitempty"`
	Groups           []GroupRecord      `json:"groups,omitempty"`
	Random           Random             `json:"random"`
}

// ExpenditureTotal is the accumulated spend of one category.
type ExpenditureTotal struct {
	Category money.Expenditure `json:"category"`
	Amount   money.Money       `json:"amount"`
}

// TileRecord is one tile that differs from the defaults.
type TileRecord struct {
	At   CoordsXY `json:"at"`
	Tile Tile     `json:"tile"`
}

// GroupRecord names a permission group.
type GroupRecord struct {
	ID   GroupID `json:"id"`
	Name string  `json:"name"`
}

// Snapshot captures the durable state.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		SizeTiles:        s.sizeTiles,
		Editor:           s.editor,
		Paused:           s.paused,
		Tick:             s.tick,
		Cheats:           s.cheats,
		Cash:             s.cash,
		MaxElements:      s.maxElements,
		DefaultOwnership: s.defaultOwnership,
		DefaultHeight:    s.defaultHeight,
		Entrances:        slices.Clone(s.entrances),
		RideEntries:      s.RideEntries(),
		Random:           s.random,
	}
	for category, amount := range s.expenditures {
		snap.Expenditures = append(snap.Expenditures, ExpenditureTotal{Category: category, Amount: amount})
	}
	slices.SortFunc(snap.Expenditures, func(a, b ExpenditureTotal) int { return int(a.Category) - int(b.Category) })

	for at, t := range s.tiles {
		if len(t.Elements) == 0 && t.Ownership == s.defaultOwnership && t.Height == s.defaultHeight {
			continue
		}
		snap.Tiles = append(snap.Tiles, TileRecord{At: at, Tile: Tile{
			Ownership: t.Ownership,
			Height:    t.Height,
			Elements:  slices.Clone(t.Elements),
		}})
	}
	slices.SortFunc(snap.Tiles, func(a, b TileRecord) int {
		if a.At.Y != b.At.Y {
			return int(a.At.Y - b.At.Y)
		}
		return int(a.At.X - b.At.X)
	})

	for _, r := range s.rides {
		if r.OverallView != nil {
			view := *r.OverallView
			r.OverallView = &view
		}
		snap.Rides = append(snap.Rides, r)
	}
	slices.SortFunc(snap.Rides, func(a, b Ride) int { return int(a.ID) - int(b.ID) })

	for _, p := range s.players {
		snap.Players = append(snap.Players, p)
	}
	slices.SortFunc(snap.Players, func(a, b Player) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})

	for id, name := range s.groups {
		snap.Groups = append(snap.Groups, GroupRecord{ID: id, Name: name})
	}
	slices.SortFunc(snap.Groups, func(a, b GroupRecord) int { return int(a.ID) - int(b.ID) })
	return snap
}

// FromSnapshot rebuilds a State.
func FromSnapshot(snap Snapshot) *State {
	s := NewState(Options{
		SizeTiles:   snap.SizeTiles,
		Editor:      snap.Editor,
		Cash:        snap.Cash,
		MaxElements: snap.MaxElements,
		Ownership:   snap.DefaultOwnership,
		SurfaceZ:    snap.DefaultHeight,
		RideEntries: snap.RideEntries,
	})
	s.paused = snap.Paused
	s.tick = snap.Tick
	s.cheats = snap.Cheats
	s.random = snap.Random
	for _, e := range snap.Expenditures {
		s.expenditures[e.Category] = e.Amount
	}
	for _, rec := range snap.Tiles {
		s.tiles[rec.At.TileStart()] = &Tile{
			Ownership: rec.Tile.Ownership,
			Height:    rec.Tile.Height,
			Elements:  slices.Clone(rec.Tile.Elements),
		}
		s.elementCount += len(rec.Tile.Elements)
	}
	s.entrances = slices.Clone(snap.Entrances)
	for _, r := range snap.Rides {
		if r.OverallView != nil {
			view := *r.OverallView
			r.OverallView = &view
		}
		s.rides[r.ID] = r
	}
	for _, p := range snap.Players {
		s.players[p.ID] = p
	}
	for _, g := range snap.Groups {
		s.groups[g.ID] = g.Name
	}
	return s
}

// MarshalJSON encodes the durable state as a Snapshot.
func (s *State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

// Decode parses a JSON snapshot produced by MarshalJSON.
func Decode(data []byte) (*State, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode world snapshot: %w", err)
	}
	return FromSnapshot(snap), nil
}

// Checksum is the SHA-256 of the canonical durable state.
func (s *State) Checksum() (string, error) {
	sum, err := encoding.Digest(s.Snapshot())
	if err != nil {
		return "", fmt.Errorf("world checksum: %w", err)
	}
	return sum, nil
}
