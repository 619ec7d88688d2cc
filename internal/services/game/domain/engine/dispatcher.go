package engine

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/parkline/internal/services/game/domain/authz"
	"github.com/louisbranch/parkline/internal/services/game/domain/checkpoint"
	"github.com/louisbranch/parkline/internal/services/game/domain/command"
	"github.com/louisbranch/parkline/internal/services/game/domain/journal"
	"github.com/louisbranch/parkline/internal/services/game/domain/replay"
	"github.com/louisbranch/parkline/internal/services/game/domain/world"
)

const (
	tracerName             = "github.com/louisbranch/parkline/internal/services/game/domain/engine"
	defaultCheckpointEvery = 40
)

var (
	// ErrRegistryRequired indicates a missing command registry.
	ErrRegistryRequired = errors.New("command registry is required")
	// ErrStateRequired indicates a missing world.
	ErrStateRequired = errors.New("world state is required")
	// ErrLogRequired indicates a missing replication log.
	ErrLogRequired = errors.New("replication log is required")
)

// Reply is what only the issuer hears about a command: rejections, decode
// failures and ghost previews. Accepted commands are announced through the
// published entry instead.
type Reply struct {
	RequestID uint32
	Type      command.Type
	Ghost     bool
	Result    command.Result
}

// Publisher fans out what the dispatcher produces. Calls happen while the
// dispatcher holds its lock and must not block.
type Publisher interface {
	PublishEntry(e journal.Entry)
	PublishTick(mark journal.TickMark)
	Reply(issuer world.PlayerID, reply Reply)
}

// Auditor records security and integrity relevant outcomes.
type Auditor interface {
	Forbidden(ctx context.Context, env command.Envelope)
	DecodeFailed(ctx context.Context, issuer world.PlayerID, err error)
	InvariantViolated(ctx context.Context, err *command.InvariantError)
}

// Config wires a Dispatcher.
type Config struct {
	Registry    *command.Registry
	Gate        *authz.Gate
	State       *world.State
	Log         journal.Log
	Publisher   Publisher
	Checkpoints checkpoint.Store
	Auditor     Auditor
	// CheckpointEvery is the number of ticks between checkpoints.
	CheckpointEvery uint64
	QueueCapacity   int
	IssuerLimit     int
	Now             func() time.Time
	Tracer          trace.Tracer
}

// Dispatcher is the authority's single serialization point.
type Dispatcher struct {
	registry        *command.Registry
	gate            *authz.Gate
	log             journal.Log
	publisher       Publisher
	checkpoints     checkpoint.Store
	auditor         Auditor
	checkpointEvery uint64
	now             func() time.Time
	tracer          trace.Tracer
	queue           *Queue

	mu    sync.Mutex
	state *world.State
	seq   uint64
}

// NewDispatcher builds a dispatcher and records the starting checkpoint. The
// dispatcher owns cfg.State from now on.
func NewDispatcher(ctx context.Context, cfg Config) (*Dispatcher, error) {
	if cfg.Registry == nil {
		return nil, ErrRegistryRequired
	}
	if cfg.State == nil {
		return nil, ErrStateRequired
	}
	if cfg.Log == nil {
		return nil, ErrLogRequired
	}
	seq, err := cfg.Log.LastSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("load last seq: %w", err)
	}
	d := &Dispatcher{
		registry:        cfg.Registry,
		gate:            cfg.Gate,
		log:             cfg.Log,
		publisher:       cfg.Publisher,
		checkpoints:     cfg.Checkpoints,
		auditor:         cfg.Auditor,
		checkpointEvery: cfg.CheckpointEvery,
		now:             cfg.Now,
		tracer:          cfg.Tracer,
		queue:           NewQueue(cfg.QueueCapacity, cfg.IssuerLimit),
		state:           cfg.State,
		seq:             seq,
	}
	if d.checkpoints == nil {
		d.checkpoints = checkpoint.NewNoop()
	}
	if d.checkpointEvery == 0 {
		d.checkpointEvery = defaultCheckpointEvery
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.tracer == nil {
		d.tracer = otel.Tracer(tracerName)
	}
	if err := d.saveCheckpoint(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// Submit stages a locally constructed command.
func (d *Dispatcher) Submit(env command.Envelope) error {
	if env.Command == nil {
		return &command.DecodeError{Err: errors.New("command is required")}
	}
	return d.queue.Push(env)
}

// SubmitFrame decodes a frame received from issuer and stages it. The header
// issuer is replaced by the authenticated one. A frame that does not decode
// is answered to the issuer only and leaves the world and sequence alone.
func (d *Dispatcher) SubmitFrame(ctx context.Context, issuer world.PlayerID, frame []byte) error {
	env, err := d.registry.Decode(frame)
	if err != nil {
		var requestType command.Type
		var decodeErr *command.DecodeError
		if errors.As(err, &decodeErr) {
			requestType = decodeErr.Type
		}
		if d.auditor != nil {
			d.auditor.DecodeFailed(ctx, issuer, err)
		}
		d.reply(issuer, Reply{Type: requestType, Result: command.SyncLost(command.StatusDecodeError)})
		return err
	}
	env.Header.Issuer = issuer
	env.Header.Flags |= command.FlagNetworkOriginated
	return d.queue.Push(env)
}

// Tick processes every staged command in arrival order, closes the tick and
// publishes its mark. A returned error is fatal.
func (d *Dispatcher) Tick(ctx context.Context) (journal.TickMark, error) {
	envs := d.queue.Drain()

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, env := range envs {
		if err := d.execute(ctx, env); err != nil {
			return journal.TickMark{}, err
		}
	}

	d.state.ClearGhosts()
	d.state.DrainEffects()
	sum, err := d.state.Checksum()
	if err != nil {
		return journal.TickMark{}, wrapFatal(fmt.Errorf("checksum: %w", err))
	}
	mark := journal.TickMark{Tick: d.state.Tick(), LastSeq: d.seq, Checksum: sum}
	d.state.AdvanceTick()
	if d.state.Tick()%d.checkpointEvery == 0 {
		if err := d.saveCheckpoint(ctx); err != nil {
			log.Printf("save checkpoint at seq %d: %v", d.seq, err)
		}
	}
	if d.publisher != nil {
		d.publisher.PublishTick(mark)
	}
	return mark, nil
}

// Run ticks every interval until ctx ends or a tick fails.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := d.Tick(ctx); err != nil {
				return err
			}
		}
	}
}

// Execute runs one command immediately, outside the queue. It shares the
// tick's lock, so it is ordered with everything else.
func (d *Dispatcher) Execute(ctx context.Context, env command.Envelope) error {
	if env.Command == nil {
		return &command.DecodeError{Err: errors.New("command is required")}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.execute(ctx, env)
}

// Preview runs a command as a ghost against the live world and returns the
// outcome without replying, sequencing or publishing it. Ghost elements stay
// until the end of the current tick.
func (d *Dispatcher) Preview(ctx context.Context, env command.Envelope) (command.Result, error) {
	if env.Command == nil {
		return command.Result{}, &command.DecodeError{Err: errors.New("command is required")}
	}
	canonical, _, err := d.registry.Canonicalize(env)
	if err != nil {
		return command.SyncLost(command.StatusDecodeError), err
	}
	canonical.Header.Flags |= command.FlagGhost

	d.mu.Lock()
	defer d.mu.Unlock()
	if res, ok := admit(d.gate, d.state, canonical); !ok {
		if res.Status == command.StatusForbidden && d.auditor != nil {
			d.auditor.Forbidden(ctx, canonical)
		}
		return res, nil
	}
	cctx := command.NewContext(canonical, d.state.Tick())
	if res := canonical.Command.Validate(d.state, cctx); !res.Succeeded() {
		return res, nil
	}
	return canonical.Command.Apply(world.Ghost(d.state), cctx), nil
}

// WithSnapshot calls fn with a copy of the world and the last sequence it
// includes. No command runs while fn does, so a subscriber registered inside
// fn sees exactly the entries after lastSeq.
func (d *Dispatcher) WithSnapshot(fn func(state *world.State, lastSeq uint64)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.state.Clone(), d.seq)
}

// Seq returns the last assigned sequence number.
func (d *Dispatcher) Seq() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seq
}

// CurrentTick returns the tick commands are currently sequenced into.
func (d *Dispatcher) CurrentTick() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Tick()
}

// Pending reports how many commands wait for the next tick.
func (d *Dispatcher) Pending() int {
	return d.queue.Len()
}

// execute drives one command through its states. Only fatal errors are
// returned; every other outcome is replied or published.
func (d *Dispatcher) execute(ctx context.Context, env command.Envelope) error {
	ctx, span := d.tracer.Start(ctx, "command.execute", trace.WithAttributes(
		attribute.String("command.type", env.Command.Type().String()),
		attribute.Int64("command.issuer", int64(env.Header.Issuer)),
		attribute.Int64("command.request_id", int64(env.Header.RequestID)),
	))
	defer span.End()

	issuer := env.Header.Issuer
	canonical, frame, err := d.registry.Canonicalize(env)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if d.auditor != nil {
			d.auditor.DecodeFailed(ctx, issuer, err)
		}
		d.reply(issuer, Reply{RequestID: env.Header.RequestID, Type: env.Command.Type(), Result: command.SyncLost(command.StatusDecodeError)})
		return nil
	}
	env = canonical
	ghost := env.Header.Flags.Has(command.FlagGhost)
	span.SetAttributes(attribute.Bool("command.ghost", ghost))

	if res, ok := admit(d.gate, d.state, env); !ok {
		span.SetAttributes(attribute.String("command.status", res.Status.String()))
		if res.Status == command.StatusForbidden && d.auditor != nil {
			d.auditor.Forbidden(ctx, env)
		}
		d.reject(env, res)
		return nil
	}

	cctx := command.NewContext(env, d.state.Tick())
	res := env.Command.Validate(d.state, cctx)
	if !res.Succeeded() {
		span.SetAttributes(attribute.String("command.status", res.Status.String()))
		d.reject(env, res)
		return nil
	}

	if ghost {
		res = env.Command.Apply(world.Ghost(d.state), cctx)
		span.SetAttributes(attribute.String("command.status", res.Status.String()))
		d.reply(issuer, Reply{RequestID: env.Header.RequestID, Type: env.Command.Type(), Ghost: true, Result: res})
		return nil
	}

	res = env.Command.Apply(d.state, cctx)
	span.SetAttributes(attribute.String("command.status", res.Status.String()))
	if !res.Succeeded() {
		ierr := &command.InvariantError{
			Seq:       d.seq + 1,
			Type:      env.Command.Type(),
			Issuer:    issuer,
			RequestID: env.Header.RequestID,
			Status:    res.Status,
			Frame:     frame,
			Err:       fmt.Errorf("apply failed after validate: %s %s", res.Message.Title, res.Message.Detail),
		}
		span.SetStatus(codes.Error, ierr.Error())
		return d.recover(ctx, ierr)
	}

	entry, err := d.log.Append(ctx, journal.Entry{
		Seq:        d.seq + 1,
		Tick:       d.state.Tick(),
		Type:       env.Command.Type(),
		Issuer:     issuer,
		RequestID:  env.Header.RequestID,
		Frame:      frame,
		Result:     command.EncodeResult(res),
		RecordedAt: d.now().UTC(),
	})
	if err != nil {
		// The world already holds a mutation nobody else will see.
		span.SetStatus(codes.Error, err.Error())
		return wrapFatal(fmt.Errorf("append entry %d: %w", d.seq+1, err))
	}
	d.seq = entry.Seq
	span.SetAttributes(attribute.Int64("command.seq", int64(entry.Seq)))
	if d.publisher != nil {
		d.publisher.PublishEntry(entry)
	}
	return nil
}

func (d *Dispatcher) reject(env command.Envelope, res command.Result) {
	d.reply(env.Header.Issuer, Reply{
		RequestID: env.Header.RequestID,
		Type:      env.Command.Type(),
		Ghost:     env.Header.Flags.Has(command.FlagGhost),
		Result:    res,
	})
}

func (d *Dispatcher) reply(issuer world.PlayerID, r Reply) {
	if d.publisher != nil {
		d.publisher.Reply(issuer, r)
	}
}

// recover restores the last known-good world after an invariant violation:
// the latest checkpoint plus every logged entry after it. Without a
// checkpoint the violation is fatal.
func (d *Dispatcher) recover(ctx context.Context, ierr *command.InvariantError) error {
	log.Printf("invariant violation: seq=%d type=%s issuer=%d request=%d status=%s frame=%s: %v",
		ierr.Seq, ierr.Type, ierr.Issuer, ierr.RequestID, ierr.Status, hex.EncodeToString(ierr.Frame), ierr.Err)
	if d.auditor != nil {
		d.auditor.InvariantViolated(ctx, ierr)
	}
	d.reply(ierr.Issuer, Reply{RequestID: ierr.RequestID, Type: ierr.Type, Result: command.SyncLost(command.StatusInternal)})

	cp, err := d.checkpoints.Latest(ctx)
	if err != nil {
		return wrapFatal(fmt.Errorf("%w (no checkpoint: %v)", ierr, err))
	}
	tick := d.state.Tick()
	restored := cp.State
	if _, err := replay.Replay(ctx, d.log, d.registry, restored, replay.Options{AfterSeq: cp.Seq}); err != nil {
		return wrapFatal(fmt.Errorf("%w (rollback replay: %v)", ierr, err))
	}
	for restored.Tick() < tick {
		restored.AdvanceTick()
	}
	d.state = restored
	log.Printf("rolled back to checkpoint seq=%d and replayed to seq=%d", cp.Seq, d.seq)
	return nil
}

func (d *Dispatcher) saveCheckpoint(ctx context.Context) error {
	return d.checkpoints.Save(ctx, checkpoint.Checkpoint{
		Seq:     d.seq,
		Tick:    d.state.Tick(),
		State:   d.state,
		SavedAt: d.now().UTC(),
	})
}
