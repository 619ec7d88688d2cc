package command

import (
	"fmt"

	"github.com/louisbranch/parkline/internal/services/game/domain/money"
	"github.com/louisbranch/parkline/internal/services/game/domain/world"
)

// EncodeResult serializes a result. Every field is always written.
func EncodeResult(r Result) []byte {
	enc := NewEncoder()
	enc.Uint(uint64(r.Status))
	enc.String(r.Message.Title)
	enc.String(r.Message.Detail)
	enc.StringMap(r.Message.Args)
	enc.Int(int64(r.Cost))
	enc.Uint(uint64(r.Expenditure))
	var pos world.CoordsXYZ
	if r.Position != nil {
		pos = *r.Position
	}
	enc.Bool(r.Position != nil)
	enc.Int(int64(pos.X))
	enc.Int(int64(pos.Y))
	enc.Int(int64(pos.Z))
	return enc.Bytes()
}

// DecodeResult parses bytes produced by EncodeResult.
func DecodeResult(b []byte) (Result, error) {
	dec := NewDecoder(b)
	r := Result{
		Status: Status(dec.Uint8()),
		Message: Message{
			Title:  dec.String(),
			Detail: dec.String(),
			Args:   dec.StringMap(),
		},
		Cost:        money.Money(dec.Int64()),
		Expenditure: money.Expenditure(dec.Uint8()),
	}
	hasPos := dec.Bool()
	pos := world.CoordsXYZ{X: dec.Int32(), Y: dec.Int32(), Z: dec.Int32()}
	if err := dec.Finish(); err != nil {
		return Result{}, fmt.Errorf("decode result: %w", err)
	}
	if !r.Status.Valid() {
		return Result{}, fmt.Errorf("decode result: unknown status %d", r.Status)
	}
	if !r.Expenditure.Valid() {
		return Result{}, fmt.Errorf("decode result: unknown expenditure %d", r.Expenditure)
	}
	if hasPos {
		r.Position = &pos
	}
	return r, nil
}
