package replay

import (
	"context"
	"errors"
	"testing"

	"github.com/louisbranch/parkline/internal/services/game/domain/actions"
	"github.com/louisbranch/parkline/internal/services/game/domain/command"
	"github.com/louisbranch/parkline/internal/services/game/domain/journal"
	"github.com/louisbranch/parkline/internal/services/game/domain/money"
	"github.com/louisbranch/parkline/internal/services/game/domain/world"
)

func newWorld() *world.State {
	return world.NewState(world.Options{
		SizeTiles: 16,
		Cash:      money.FromUnits(100),
		Seed:      3,
		Groups:    map[world.GroupID]string{0: "Admin"},
		RideEntries: []world.RideEntry{
			{ID: 1, RideType: 1, MinCarsPerTrain: 1, MaxCarsPerTrain: 8, ColourPresets: 5, Invented: true, CostPerCar: money.FromUnits(2)},
		},
		Rides: []world.Ride{{ID: 1, Type: 1, Subtype: 1, ProposedNumTrains: 1, ProposedCarsPerTrain: 2}},
	})
}

// record applies cmds on an authority world and logs them.
func record(t *testing.T, tick uint64, cmds ...command.Command) (*journal.Memory, *world.State) {
	t.Helper()
	authority := newWorld()
	log := journal.NewMemory()
	for i, cmd := range cmds {
		for authority.Tick() < tick {
			authority.AdvanceTick()
		}
		env := command.Envelope{Header: command.Header{RequestID: uint32(i + 1)}, Command: cmd}
		res := cmd.Apply(authority, command.NewContext(env, tick))
		if _, err := log.Append(context.Background(), journal.Entry{
			Seq:       uint64(i + 1),
			Tick:      tick,
			Type:      cmd.Type(),
			RequestID: env.Header.RequestID,
			Frame:     command.Marshal(env),
			Result:    command.EncodeResult(res),
		}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	return log, authority
}

func newRegistry(t *testing.T) *command.Registry {
	t.Helper()
	r, err := actions.NewRegistry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return r
}

func TestReplayReproducesAuthority(t *testing.T) {
	log, authority := record(t, 3,
		&actions.RideSetVehicle{Ride: 1, Setting: actions.VehicleNumCarsPerTrain, Value: 5},
		&actions.RideSetVehicle{Ride: 1, Setting: actions.VehicleRideEntry, Value: 1, Colour: actions.RandomColourPreset},
		&actions.SetCheat{Cheat: actions.CheatAddMoney, Param1: 40},
	)
	replica := newWorld()
	res, err := Replay(context.Background(), log, newRegistry(t), replica, Options{PageSize: 2})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if res.Applied != 3 || res.LastSeq != 3 {
		t.Fatalf("result = %+v, want 3 applied", res)
	}
	want, _ := authority.Checksum()
	got, _ := replica.Checksum()
	if got != want {
		t.Fatal("replica diverged from authority")
	}
	if replica.Tick() != 3 {
		t.Fatalf("tick = %d, want 3", replica.Tick())
	}
}

func TestReplayHonoursBounds(t *testing.T) {
	log, _ := record(t, 0,
		&actions.SetCheat{Cheat: actions.CheatAddMoney, Param1: 1},
		&actions.SetCheat{Cheat: actions.CheatAddMoney, Param1: 2},
		&actions.SetCheat{Cheat: actions.CheatAddMoney, Param1: 4},
	)
	replica := newWorld()
	res, err := Replay(context.Background(), log, newRegistry(t), replica, Options{AfterSeq: 1, UntilSeq: 2})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if res.Applied != 1 || res.LastSeq != 2 {
		t.Fatalf("result = %+v, want only seq 2", res)
	}
	if want := money.FromUnits(100).Add(2); replica.Cash() != want {
		t.Fatalf("cash = %v, want %v", replica.Cash(), want)
	}
}

func TestApplyEntryDetectsStatusMismatch(t *testing.T) {
	cmd := &actions.RideSetVehicle{Ride: 1, Setting: actions.VehicleNumTrains, Value: 2}
	env := command.Envelope{Command: cmd}
	e := journal.Entry{
		Seq:    1,
		Type:   cmd.Type(),
		Frame:  command.Marshal(env),
		Result: command.EncodeResult(command.Fail(command.StatusBroken, "", "")),
	}
	err := ApplyEntry(newRegistry(t), newWorld(), e)
	if !command.IsInvariantViolation(err) || !errors.Is(err, ErrStatusMismatch) {
		t.Fatalf("apply = %v, want status mismatch invariant", err)
	}
}

func TestApplyEntryRejectsUndecodableFrame(t *testing.T) {
	e := journal.Entry{Seq: 1, Frame: []byte{0xEE, 0, 0, 0}, Result: command.EncodeResult(command.Ok())}
	err := ApplyEntry(newRegistry(t), newWorld(), e)
	if !command.IsInvariantViolation(err) || !command.IsDecodeError(err) {
		t.Fatalf("apply = %v, want decode invariant", err)
	}
}

func TestApplyEntryRejectsOldTick(t *testing.T) {
	state := newWorld()
	state.AdvanceTick()
	state.AdvanceTick()
	cmd := &actions.PauseToggle{}
	e := journal.Entry{Seq: 1, Tick: 1, Frame: command.Marshal(command.Envelope{Command: cmd}), Result: command.EncodeResult(command.Ok())}
	if err := ApplyEntry(newRegistry(t), state, e); !errors.Is(err, ErrTickRegressed) {
		t.Fatalf("apply = %v, want %v", err, ErrTickRegressed)
	}
}

func TestReplayRequiresCollaborators(t *testing.T) {
	ctx := context.Background()
	if _, err := Replay(ctx, nil, newRegistry(t), newWorld(), Options{}); !errors.Is(err, ErrLogRequired) {
		t.Fatalf("err = %v, want %v", err, ErrLogRequired)
	}
	if _, err := Replay(ctx, journal.NewMemory(), nil, newWorld(), Options{}); !errors.Is(err, ErrRegistryRequired) {
		t.Fatalf("err = %v, want %v", err, ErrRegistryRequired)
	}
	if _, err := Replay(ctx, journal.NewMemory(), newRegistry(t), nil, Options{}); !errors.Is(err, ErrStateRequired) {
		t.Fatalf("err = %v, want %v", err, ErrStateRequired)
	}
}
