package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/louisbranch/parkline/internal/services/game/domain/actions"
	"github.com/louisbranch/parkline/internal/services/game/domain/authz"
	"github.com/louisbranch/parkline/internal/services/game/domain/checkpoint"
	"github.com/louisbranch/parkline/internal/services/game/domain/command"
	"github.com/louisbranch/parkline/internal/services/game/domain/journal"
	"github.com/louisbranch/parkline/internal/services/game/domain/money"
	"github.com/louisbranch/parkline/internal/services/game/domain/world"
)

const (
	host  = world.HostPlayerID
	guest = world.PlayerID(5)
	mod   = world.PlayerID(6)

	typeFlaky command.Type = 0x7E
)

// flaky passes validation and fails to apply, like a command whose
// preconditions went stale.
type flaky struct{}

func (*flaky) Type() command.Type                                  { return typeFlaky }
func (*flaky) Flags() command.Flags                                { return command.FlagAllowWhilePaused }
func (*flaky) Capability() command.Capability                      { return command.CapNone }
func (*flaky) Validate(world.View, command.Context) command.Result { return command.Ok() }
func (*flaky) MarshalFields(*command.Encoder)                      {}
func (*flaky) UnmarshalFields(*command.Decoder) error              { return nil }
func (*flaky) Apply(m world.Mutator, _ command.Context) command.Result {
	m.SetCash(0)
	return command.Fail(command.StatusNoClearance, "", "")
}

type recordingPublisher struct {
	entries []journal.Entry
	ticks   []journal.TickMark
	replies map[world.PlayerID][]Reply
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{replies: make(map[world.PlayerID][]Reply)}
}

func (p *recordingPublisher) PublishEntry(e journal.Entry)      { p.entries = append(p.entries, e) }
func (p *recordingPublisher) PublishTick(mark journal.TickMark) { p.ticks = append(p.ticks, mark) }
func (p *recordingPublisher) Reply(issuer world.PlayerID, r Reply) {
	p.replies[issuer] = append(p.replies[issuer], r)
}

func (p *recordingPublisher) lastReply(t *testing.T, issuer world.PlayerID) Reply {
	t.Helper()
	replies := p.replies[issuer]
	if len(replies) == 0 {
		t.Fatalf("no reply for issuer %d", issuer)
	}
	return replies[len(replies)-1]
}

type countingAuditor struct {
	forbidden  int
	decode     int
	invariants []*command.InvariantError
}

func (a *countingAuditor) Forbidden(context.Context, command.Envelope)         { a.forbidden++ }
func (a *countingAuditor) DecodeFailed(context.Context, world.PlayerID, error) { a.decode++ }
func (a *countingAuditor) InvariantViolated(_ context.Context, err *command.InvariantError) {
	a.invariants = append(a.invariants, err)
}

type harness struct {
	d         *Dispatcher
	log       *journal.Memory
	publisher *recordingPublisher
	auditor   *countingAuditor
	registry  *command.Registry
}

func newWorld() *world.State {
	s := world.NewState(world.Options{
		SizeTiles: 20,
		Editor:    true,
		Cash:      money.FromUnits(100),
		Seed:      9,
		Groups:    map[world.GroupID]string{authz.GroupAdmin: "Admin", authz.GroupModerator: "Moderator", authz.GroupGuest: "Guest"},
		RideEntries: []world.RideEntry{
			{ID: 1, RideType: 1, MinCarsPerTrain: 1, MaxCarsPerTrain: 6, ColourPresets: 4, Invented: true, CostPerCar: money.FromUnits(3)},
		},
		Rides: []world.Ride{{ID: 1, Type: 1, Subtype: 1, ProposedNumTrains: 1, ProposedCarsPerTrain: 1}},
	})
	s.PutPlayer(world.Player{ID: host, Name: "host", Group: authz.GroupAdmin})
	s.PutPlayer(world.Player{ID: guest, Name: "guest", Group: authz.GroupGuest})
	s.PutPlayer(world.Player{ID: mod, Name: "mod", Group: authz.GroupModerator})
	return s
}

func newHarness(t *testing.T, store checkpoint.Store) *harness {
	t.Helper()
	registry, err := actions.NewRegistry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if err := registry.Register(command.Definition{Type: typeFlaky, Name: "flaky", New: func() command.Command { return &flaky{} }}); err != nil {
		t.Fatalf("register flaky: %v", err)
	}
	h := &harness{
		log:       journal.NewMemory(),
		publisher: newRecordingPublisher(),
		auditor:   &countingAuditor{},
		registry:  registry,
	}
	h.d, err = NewDispatcher(context.Background(), Config{
		Registry:        registry,
		Gate:            authz.NewGate(authz.DefaultPolicy(), false),
		State:           newWorld(),
		Log:             h.log,
		Publisher:       h.publisher,
		Checkpoints:     store,
		Auditor:         h.auditor,
		CheckpointEvery: 2,
	})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	return h
}

func (h *harness) submit(t *testing.T, issuer world.PlayerID, requestID uint32, cmd command.Command) {
	t.Helper()
	frame := command.Marshal(command.Envelope{Header: command.Header{RequestID: requestID}, Command: cmd})
	if err := h.d.SubmitFrame(context.Background(), issuer, frame); err != nil {
		t.Fatalf("submit: %v", err)
	}
}

func (h *harness) tick(t *testing.T) journal.TickMark {
	t.Helper()
	mark, err := h.d.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	return mark
}

func (h *harness) checksum(t *testing.T) string {
	t.Helper()
	var sum string
	h.d.WithSnapshot(func(s *world.State, _ uint64) {
		var err error
		if sum, err = s.Checksum(); err != nil {
			t.Fatalf("checksum: %v", err)
		}
	})
	return sum
}

func TestUnknownTypeIsDecodeErrorWithoutSideEffects(t *testing.T) {
	h := newHarness(t, checkpoint.NewMemory(0))
	before := h.checksum(t)

	frame := []byte{0xEE, 0x00, 0x00, 0x00, 0x08, 0x01}
	err := h.d.SubmitFrame(context.Background(), guest, frame)
	if !command.IsDecodeError(err) {
		t.Fatalf("submit = %v, want decode error", err)
	}
	if h.checksum(t) != before {
		t.Fatal("decode failure changed the world")
	}
	if h.d.Pending() != 0 {
		t.Fatalf("pending = %d, want 0", h.d.Pending())
	}
	reply := h.publisher.lastReply(t, guest)
	if reply.Result.Status != command.StatusDecodeError || reply.Result.Message.Title != command.MsgSyncLost {
		t.Fatalf("reply = %+v, want sync lost decode error", reply.Result)
	}
	if reply.Type != 0xEE {
		t.Fatalf("reply type = %v, want 0xEE", reply.Type)
	}

	h.tick(t)
	if h.d.Seq() != 0 || len(h.publisher.entries) != 0 {
		t.Fatalf("seq = %d entries = %d, want none", h.d.Seq(), len(h.publisher.entries))
	}
	if h.auditor.decode != 1 {
		t.Fatalf("decode audits = %d, want 1", h.auditor.decode)
	}
}

func TestValidateRejectionIsNeitherAppliedNorLogged(t *testing.T) {
	h := newHarness(t, checkpoint.NewMemory(0))
	h.submit(t, host, 1, &actions.PlaceParkEntrance{Loc: world.CoordsXYZD{X: 32, Y: 320}})
	h.tick(t)

	reply := h.publisher.lastReply(t, host)
	if reply.RequestID != 1 || reply.Result.Status != command.StatusInvalidParameters {
		t.Fatalf("reply = %+v, want invalid parameters for request 1", reply)
	}
	if last, _ := h.log.LastSeq(context.Background()); last != 0 {
		t.Fatalf("log seq = %d, want 0", last)
	}
	if len(h.publisher.entries) != 0 {
		t.Fatalf("entries = %d, want 0", len(h.publisher.entries))
	}
	var entrances int
	h.d.WithSnapshot(func(s *world.State, _ uint64) { entrances = len(s.ParkEntrances()) })
	if entrances != 0 {
		t.Fatalf("entrances = %d, want 0", entrances)
	}
}

func TestForbiddenTakesPrecedenceOverValidation(t *testing.T) {
	tests := []struct {
		name string
		cmd  command.Command
	}{
		{name: "would succeed", cmd: &actions.PlaceParkEntrance{Loc: world.CoordsXYZD{X: 320, Y: 320}}},
		{name: "would fail validation", cmd: &actions.PlaceParkEntrance{Loc: world.CoordsXYZD{X: 32, Y: 320}}},
		{name: "unknown ride", cmd: &actions.RideSetVehicle{Ride: 99, Setting: actions.VehicleNumTrains, Value: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, checkpoint.NewMemory(0))
			h.submit(t, guest, 7, tt.cmd)
			h.tick(t)
			reply := h.publisher.lastReply(t, guest)
			if reply.Result.Status != command.StatusForbidden {
				t.Fatalf("status = %v, want %v", reply.Result.Status, command.StatusForbidden)
			}
			if reply.Result.Message.Detail != command.MsgNone || reply.Result.Position != nil {
				t.Fatalf("forbidden result leaks detail: %+v", reply.Result)
			}
			if h.auditor.forbidden != 1 || h.d.Seq() != 0 {
				t.Fatalf("audits = %d seq = %d, want 1 and 0", h.auditor.forbidden, h.d.Seq())
			}
		})
	}
}

func TestNetworkCannotIssueSystemCommands(t *testing.T) {
	h := newHarness(t, checkpoint.NewMemory(0))
	h.submit(t, host, 3, &actions.PlayerJoin{Player: 44, Name: "intruder", Group: authz.GroupAdmin})
	h.tick(t)
	if got := h.publisher.lastReply(t, host).Result.Status; got != command.StatusForbidden {
		t.Fatalf("status = %v, want %v", got, command.StatusForbidden)
	}

	// The authority itself may.
	if err := h.d.Submit(command.Envelope{Header: command.Header{Issuer: host}, Command: &actions.PlayerJoin{Player: 44, Name: "visitor", Group: authz.GroupGuest}}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	h.tick(t)
	if h.d.Seq() != 1 {
		t.Fatalf("seq = %d, want 1", h.d.Seq())
	}
}

func TestOverlappingEntrancesInOneTick(t *testing.T) {
	h := newHarness(t, checkpoint.NewMemory(0))
	h.submit(t, host, 1, &actions.PlaceParkEntrance{Loc: world.CoordsXYZD{X: 160, Y: 160}})
	h.submit(t, mod, 2, &actions.RideSetVehicle{Ride: 1, Setting: actions.VehicleNumTrains, Value: 2})
	h.submit(t, host, 3, &actions.PlaceParkEntrance{Loc: world.CoordsXYZD{X: 160, Y: 192}})
	mark := h.tick(t)

	if len(h.publisher.entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(h.publisher.entries))
	}
	first, second := h.publisher.entries[0], h.publisher.entries[1]
	if first.Seq != 1 || first.RequestID != 1 || second.Seq != 2 || second.Issuer != mod {
		t.Fatalf("entries = %+v, %+v", first, second)
	}
	if mark.LastSeq != 2 || mark.Tick != 0 {
		t.Fatalf("mark = %+v, want tick 0 last seq 2", mark)
	}
	reply := h.publisher.lastReply(t, host)
	if reply.RequestID != 3 || reply.Result.Status != command.StatusItemAlreadyPlaced {
		t.Fatalf("reply = %+v, want item already placed for request 3", reply)
	}
	res, err := second.DecodeResult()
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.Cost != money.FromUnits(3) {
		t.Fatalf("cost = %v, want 3.0", res.Cost)
	}
}

func TestIssuerOverwrittenFromSession(t *testing.T) {
	h := newHarness(t, checkpoint.NewMemory(0))
	cmd := &actions.SetCheat{Cheat: actions.CheatAddMoney, Param1: 10}
	frame := command.Marshal(command.Envelope{Header: command.Header{Issuer: host, RequestID: 9}, Command: cmd})
	if err := h.d.SubmitFrame(context.Background(), guest, frame); err != nil {
		t.Fatalf("submit: %v", err)
	}
	h.tick(t)
	if got := h.publisher.lastReply(t, guest).Result.Status; got != command.StatusForbidden {
		t.Fatalf("status = %v, want %v", got, command.StatusForbidden)
	}
	if len(h.publisher.replies[host]) != 0 {
		t.Fatal("host received a reply for a guest command")
	}
}

func TestPausedRejectsUnlessAllowed(t *testing.T) {
	h := newHarness(t, checkpoint.NewMemory(0))
	h.submit(t, host, 1, &actions.PauseToggle{})
	h.tick(t)

	h.d.WithSnapshot(func(s *world.State, _ uint64) {
		if !s.Paused() {
			t.Fatal("expected paused world")
		}
	})

	h.submit(t, host, 2, &actions.WallRemove{Loc: world.CoordsXYZD{X: 64, Y: 64}})
	h.submit(t, host, 3, &actions.RideSetVehicle{Ride: 1, Setting: actions.VehicleNumTrains, Value: 2})
	h.tick(t)
	replies := h.publisher.replies[host]
	if len(replies) != 1 || replies[0].RequestID != 2 || replies[0].Result.Status != command.StatusGamePaused {
		t.Fatalf("replies = %+v, want game paused for request 2", replies)
	}
	if h.d.Seq() != 2 {
		t.Fatalf("seq = %d, want 2", h.d.Seq())
	}

	h.submit(t, host, 4, &actions.SetCheat{Cheat: actions.CheatBuildInPauseMode, Param1: 1})
	h.submit(t, host, 5, &actions.WallRemove{Loc: world.CoordsXYZD{X: 64, Y: 64}})
	h.tick(t)
	reply := h.publisher.lastReply(t, host)
	if reply.RequestID != 5 || reply.Result.Status != command.StatusInvalidParameters {
		t.Fatalf("reply = %+v, want wall-not-found validation for request 5", reply)
	}
}

func TestGhostPreviewIsNeverSequenced(t *testing.T) {
	h := newHarness(t, checkpoint.NewMemory(0))
	before := h.checksum(t)
	frame := command.Marshal(command.Envelope{
		Header:  command.Header{RequestID: 4, Flags: command.FlagGhost},
		Command: &actions.PlaceParkEntrance{Loc: world.CoordsXYZD{X: 320, Y: 320}},
	})
	if err := h.d.SubmitFrame(context.Background(), host, frame); err != nil {
		t.Fatalf("submit: %v", err)
	}
	mark := h.tick(t)

	reply := h.publisher.lastReply(t, host)
	if !reply.Ghost || !reply.Result.Succeeded() {
		t.Fatalf("reply = %+v, want ghost success", reply)
	}
	if h.d.Seq() != 0 || mark.LastSeq != 0 {
		t.Fatalf("seq = %d, want 0", h.d.Seq())
	}
	h.d.WithSnapshot(func(s *world.State, _ uint64) {
		if len(s.ParkEntrances()) != 0 || len(s.ElementsAt(world.CoordsXY{X: 320, Y: 320})) != 0 {
			t.Fatal("ghost left durable or lingering state")
		}
		if s.Cash() != money.FromUnits(100) {
			t.Fatalf("cash = %v", s.Cash())
		}
	})
	if mark.Checksum != before {
		t.Fatal("ghost changed the tick checksum")
	}
}

func TestPreviewReturnsGhostOutcome(t *testing.T) {
	h := newHarness(t, checkpoint.NewMemory(0))
	ctx := context.Background()
	place := &actions.PlaceParkEntrance{Loc: world.CoordsXYZD{X: 320, Y: 320}}

	res, err := h.d.Preview(ctx, command.Envelope{Header: command.Header{Issuer: host}, Command: place})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if !res.Succeeded() {
		t.Fatalf("status = %v, want %v", res.Status, command.StatusOk)
	}
	res, err = h.d.Preview(ctx, command.Envelope{Header: command.Header{Issuer: guest}, Command: place})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if res.Status != command.StatusForbidden {
		t.Fatalf("status = %v, want %v", res.Status, command.StatusForbidden)
	}
	if h.auditor.forbidden != 1 {
		t.Fatalf("forbidden audits = %d, want 1", h.auditor.forbidden)
	}

	h.tick(t)
	if h.d.Seq() != 0 || len(h.publisher.entries) != 0 {
		t.Fatalf("preview was sequenced: seq %d", h.d.Seq())
	}
	h.d.WithSnapshot(func(s *world.State, _ uint64) {
		if len(s.ParkEntrances()) != 0 {
			t.Fatal("preview left a park entrance")
		}
	})
}

func TestInvariantViolationRollsBack(t *testing.T) {
	h := newHarness(t, checkpoint.NewMemory(0))
	h.submit(t, host, 1, &actions.SetCheat{Cheat: actions.CheatAddMoney, Param1: 50})
	h.tick(t)
	h.submit(t, host, 2, &actions.RideSetVehicle{Ride: 1, Setting: actions.VehicleNumTrains, Value: 3})
	h.submit(t, host, 3, &flaky{})
	h.submit(t, host, 4, &actions.SetCheat{Cheat: actions.CheatAddMoney, Param1: 1})
	mark := h.tick(t)

	if len(h.auditor.invariants) != 1 {
		t.Fatalf("invariants = %d, want 1", len(h.auditor.invariants))
	}
	ierr := h.auditor.invariants[0]
	if ierr.Type != typeFlaky || ierr.RequestID != 3 || ierr.Seq != 3 || len(ierr.Frame) == 0 {
		t.Fatalf("invariant = %+v", ierr)
	}
	reply := h.publisher.replies[host][0]
	if reply.RequestID != 3 || reply.Result.Message.Title != command.MsgSyncLost {
		t.Fatalf("reply = %+v, want sync lost", reply)
	}
	if mark.LastSeq != 3 || h.d.Seq() != 3 {
		t.Fatalf("seq = %d, want 3", h.d.Seq())
	}

	// The flaky command zeroed the cash; the rollback restored every
	// published effect and the next command still ran.
	want := money.FromUnits(100).Add(50).Sub(money.FromUnits(6)).Add(1)
	h.d.WithSnapshot(func(s *world.State, _ uint64) {
		if s.Cash() != want {
			t.Fatalf("cash = %v, want %v", s.Cash(), want)
		}
		if s.Tick() != 2 {
			t.Fatalf("tick = %d, want 2", s.Tick())
		}
	})
}

func TestInvariantViolationWithoutCheckpointIsFatal(t *testing.T) {
	h := newHarness(t, checkpoint.NewNoop())
	h.submit(t, host, 1, &flaky{})
	_, err := h.d.Tick(context.Background())
	if !IsFatal(err) || !IsDesync(err) {
		t.Fatalf("tick = %v, want fatal desync", err)
	}
}

func TestCheckpointsFollowInterval(t *testing.T) {
	store := checkpoint.NewMemory(10)
	h := newHarness(t, store)
	for i := 0; i < 4; i++ {
		h.tick(t)
	}
	// One at start, then every second tick.
	if store.Len() != 3 {
		t.Fatalf("checkpoints = %d, want 3", store.Len())
	}
	cp, err := store.Latest(context.Background())
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if cp.Tick != 4 {
		t.Fatalf("checkpoint tick = %d, want 4", cp.Tick)
	}
}

func TestReplicaFollowsAuthority(t *testing.T) {
	h := newHarness(t, checkpoint.NewMemory(0))
	replica := NewReplica(h.registry, 0)
	h.d.WithSnapshot(func(s *world.State, lastSeq uint64) { replica.Reset(s, lastSeq) })

	h.submit(t, host, 1, &actions.RideSetVehicle{Ride: 1, Setting: actions.VehicleNumCarsPerTrain, Value: 4})
	h.submit(t, mod, 2, &actions.RideSetVehicle{Ride: 1, Setting: actions.VehicleRideEntry, Value: 1, Colour: actions.RandomColourPreset})
	h.submit(t, host, 3, &actions.PlaceParkEntrance{Loc: world.CoordsXYZD{X: 320, Y: 320, Direction: 2}})
	h.tick(t)
	h.submit(t, host, 4, &actions.SetCheat{Cheat: actions.CheatSetMoney, Param1: 77})
	h.tick(t)

	entries := h.publisher.entries
	marks := h.publisher.ticks
	if len(entries) != 4 || len(marks) != 2 {
		t.Fatalf("entries = %d marks = %d, want 4 and 2", len(entries), len(marks))
	}

	// Entries of the next tick arrive early and out of order.
	for _, i := range []int{3, 2, 1} {
		if err := replica.Receive(entries[i]); err != nil {
			t.Fatalf("receive %d: %v", entries[i].Seq, err)
		}
	}
	if replica.LastSeq() != 0 {
		t.Fatalf("applied = %d before seq 1 arrived", replica.LastSeq())
	}
	if err := replica.AdvanceTick(marks[0]); !errors.Is(err, ErrTickNotReady) {
		t.Fatalf("advance = %v, want %v", err, ErrTickNotReady)
	}
	if err := replica.Receive(entries[0]); err != nil {
		t.Fatalf("receive 1: %v", err)
	}
	if replica.LastSeq() != 3 {
		t.Fatalf("applied = %d, want 3 (seq 4 belongs to the next tick)", replica.LastSeq())
	}
	if err := replica.Receive(entries[1]); err != nil {
		t.Fatalf("duplicate receive: %v", err)
	}
	for _, mark := range marks {
		if err := replica.AdvanceTick(mark); err != nil {
			t.Fatalf("advance tick %d: %v", mark.Tick, err)
		}
	}
	if replica.LastSeq() != 4 || replica.Tick() != 2 {
		t.Fatalf("replica at seq %d tick %d, want 4 and 2", replica.LastSeq(), replica.Tick())
	}
	got, _ := replica.Checksum()
	if want := h.checksum(t); got != want {
		t.Fatal("replica diverged")
	}
	if len(replica.DrainEffects()) == 0 {
		t.Fatal("expected presentation effects")
	}
}

func TestReplicaDetectsDivergence(t *testing.T) {
	h := newHarness(t, checkpoint.NewMemory(0))
	replica := NewReplica(h.registry, 0)
	h.d.WithSnapshot(func(s *world.State, lastSeq uint64) {
		s.SetCash(1)
		replica.Reset(s, lastSeq)
	})
	mark := h.tick(t)

	err := replica.AdvanceTick(mark)
	if !IsDesync(err) || !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("advance = %v, want checksum desync", err)
	}
	if err := replica.AdvanceTick(journal.TickMark{Tick: 9}); !errors.Is(err, ErrTickOutOfOrder) {
		t.Fatalf("advance = %v, want %v", err, ErrTickOutOfOrder)
	}
}

func TestReplicaReorderLimit(t *testing.T) {
	replica := NewReplica(nil, 2)
	for seq := uint64(2); seq <= 3; seq++ {
		if err := replica.Receive(journal.Entry{Seq: seq}); err != nil {
			t.Fatalf("receive %d: %v", seq, err)
		}
	}
	if err := replica.Receive(journal.Entry{Seq: 4}); !errors.Is(err, ErrReorderOverflow) {
		t.Fatalf("receive = %v, want %v", err, ErrReorderOverflow)
	}
}
