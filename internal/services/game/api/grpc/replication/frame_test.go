package replication

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/louisbranch/parkline/internal/services/game/domain/actions"
	"github.com/louisbranch/parkline/internal/services/game/domain/command"
	"github.com/louisbranch/parkline/internal/services/game/domain/engine"
	"github.com/louisbranch/parkline/internal/services/game/domain/journal"
	"github.com/louisbranch/parkline/internal/services/game/domain/money"
	"github.com/louisbranch/parkline/internal/services/game/domain/world"
)

func TestEntryFrameKeepsChainFields(t *testing.T) {
	in := journal.Entry{
		Seq:            7,
		Tick:           3,
		Type:           actions.TypeSetCheat,
		Issuer:         4,
		RequestID:      99,
		Frame:          []byte{1, 2, 3},
		Result:         command.EncodeResult(command.Ok()),
		RecordedAt:     time.Date(2026, 3, 1, 12, 0, 0, 5, time.UTC),
		Hash:           "h",
		PrevHash:       "p",
		ChainHash:      "c",
		Signature:      "s",
		SignatureKeyID: "k1",
	}
	f, err := DecodeFrame(EncodeEntry(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if f.Kind != KindEntry {
		t.Fatalf("kind = %v, want %v", f.Kind, KindEntry)
	}
	got := f.Entry
	if got.Seq != in.Seq || got.Tick != in.Tick || got.Type != in.Type || got.Issuer != in.Issuer || got.RequestID != in.RequestID {
		t.Fatalf("entry = %+v, want %+v", got, in)
	}
	if !bytes.Equal(got.Frame, in.Frame) || !bytes.Equal(got.Result, in.Result) {
		t.Fatalf("payload = %v/%v, want %v/%v", got.Frame, got.Result, in.Frame, in.Result)
	}
	if !got.RecordedAt.Equal(in.RecordedAt) {
		t.Fatalf("recorded at = %v, want %v", got.RecordedAt, in.RecordedAt)
	}
	if got.ChainHash != "c" || got.PrevHash != "p" || got.SignatureKeyID != "k1" {
		t.Fatalf("chain fields = %+v", got)
	}
}

func TestReplyFrameCarriesResult(t *testing.T) {
	res := command.Fail(command.StatusInsufficientFunds, "CANT_DO", command.MsgNotEnoughCash).WithArg("Cost", "5")
	res.Cost = money.FromUnits(5)
	f, err := DecodeFrame(EncodeReply(engine.Reply{RequestID: 3, Type: actions.TypeRideSetVehicle, Ghost: true, Result: res}))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if f.Reply.RequestID != 3 || !f.Reply.Ghost || f.Reply.Type != actions.TypeRideSetVehicle {
		t.Fatalf("reply = %+v", f.Reply)
	}
	if f.Reply.Result.Status != command.StatusInsufficientFunds || f.Reply.Result.Cost != res.Cost {
		t.Fatalf("result = %+v, want %+v", f.Reply.Result, res)
	}
}

func TestSnapshotFrameRestoresWorld(t *testing.T) {
	state := world.NewState(world.Options{SizeTiles: 12, Cash: money.FromUnits(40), Seed: 3})
	state.AdvanceTick()
	b, err := EncodeSnapshot(state, 12)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	f, err := DecodeFrame(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want, _ := state.Checksum()
	got, _ := f.Snapshot.State.Checksum()
	if f.Snapshot.LastSeq != 12 || got != want {
		t.Fatalf("snapshot = seq %d sum %s, want seq 12 sum %s", f.Snapshot.LastSeq, got, want)
	}
}

func TestDecodeFrameRejectsDefects(t *testing.T) {
	tick := EncodeTick(journal.TickMark{Tick: 1, LastSeq: 2, Checksum: "x"})
	tests := []struct {
		name  string
		frame []byte
		want  error
	}{
		{name: "empty", frame: nil, want: ErrFrameEmpty},
		{name: "unknown kind", frame: []byte{0xFF}, want: ErrFrameKind},
		{name: "trailing bytes", frame: append(tick, 0x08, 0x01)},
		{name: "truncated", frame: tick[:len(tick)-1]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFrame(tt.frame)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSubmitFrameDoesNotAliasInput(t *testing.T) {
	b := EncodeSubmit([]byte{9, 9})
	f, err := DecodeFrame(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b[len(b)-1] = 0
	if !bytes.Equal(f.Command, []byte{9, 9}) {
		t.Fatalf("command = %v, want [9 9]", f.Command)
	}
}
