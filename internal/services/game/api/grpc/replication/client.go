package replication

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"

	platformgrpc "github.com/louisbranch/parkline/internal/platform/grpc"
	"github.com/louisbranch/parkline/internal/platform/timeouts"
	grpcmeta "github.com/louisbranch/parkline/internal/services/game/api/grpc/metadata"
	"github.com/louisbranch/parkline/internal/services/game/domain/command"
	"github.com/louisbranch/parkline/internal/services/game/domain/engine"
	"github.com/louisbranch/parkline/internal/services/game/domain/journal"
	"github.com/louisbranch/parkline/internal/services/game/domain/world"
)

const (
	defaultPendingTimeout = 10 * time.Second
	replyBuffer           = 64
)

var (
	// ErrNotConnected indicates a submit before Run opened the session.
	ErrNotConnected = errors.New("session is not connected")
	// ErrSessionFault indicates the authority closed the session.
	ErrSessionFault = errors.New("session faulted")
	// ErrUnexpectedFrame indicates a frame the participant side never expects.
	ErrUnexpectedFrame = errors.New("unexpected frame")
)

// ClientOptions configures a Client.
type ClientOptions struct {
	Player world.PlayerID
	Name   string
	// Locale selects the language of session errors; empty means the
	// authority's default.
	Locale string
	// ReorderLimit bounds entries buffered ahead of a gap.
	ReorderLimit int
	// PendingTimeout is how long a submitted command may stay unanswered.
	PendingTimeout time.Duration
	Now            func() time.Time
}

// Client is a participant: it submits commands and keeps a replica in step
// with the authority.
type Client struct {
	cc      grpc.ClientConnInterface
	closer  io.Closer
	player  world.PlayerID
	name    string
	locale  string
	replica *engine.Replica
	pending *engine.Pending
	now     func() time.Time
	replies chan engine.Reply
	ready   chan struct{}

	mu          sync.Mutex
	stream      SessionClient
	nextRequest uint32
	marks       []journal.TickMark
}

// Dial connects to the authority at addr and waits until it reports serving.
func Dial(ctx context.Context, addr string, registry *command.Registry, opts ClientOptions, dialOpts ...grpc.DialOption) (*Client, error) {
	conn, err := platformgrpc.DialWithHealth(ctx, addr, ServiceName, timeouts.GRPCDial, nil, append(platformgrpc.DefaultClientDialOptions(), dialOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	c := NewClient(conn, registry, opts)
	c.closer = conn
	return c, nil
}

// NewClient builds a client over an existing connection.
func NewClient(cc grpc.ClientConnInterface, registry *command.Registry, opts ClientOptions) *Client {
	timeout := opts.PendingTimeout
	if timeout <= 0 {
		timeout = defaultPendingTimeout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Client{
		cc:      cc,
		player:  opts.Player,
		name:    opts.Name,
		locale:  opts.Locale,
		replica: engine.NewReplica(registry, opts.ReorderLimit),
		pending: engine.NewPending(timeout),
		now:     now,
		replies: make(chan engine.Reply, replyBuffer),
		ready:   make(chan struct{}),
	}
}

// Replica returns the local copy of the world.
func (c *Client) Replica() *engine.Replica {
	return c.replica
}

// Replies delivers rejections and ghost previews addressed to this player.
func (c *Client) Replies() <-chan engine.Reply {
	return c.replies
}

// Ready is closed once the join snapshot is loaded.
func (c *Client) Ready() <-chan struct{} {
	return c.ready
}

// Run opens the session and applies what the authority sends until the
// stream ends. It returns nil when the authority closes the stream cleanly.
func (c *Client) Run(ctx context.Context) error {
	ctx = grpcmeta.WithOutgoingPlayer(ctx, c.player, c.name)
	ctx = grpcmeta.WithOutgoingLocale(ctx, c.locale)
	stream, err := OpenSession(ctx, c.cc)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	c.mu.Lock()
	c.stream = stream
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.stream = nil
		c.mu.Unlock()
	}()

	joined := false
	for {
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		f, err := DecodeFrame(msg.GetValue())
		if err != nil {
			return err
		}
		if !joined && f.Kind != KindSnapshot && f.Kind != KindFault {
			return fmt.Errorf("%w: %s before snapshot", ErrUnexpectedFrame, f.Kind)
		}
		switch f.Kind {
		case KindSnapshot:
			c.replica.Reset(f.Snapshot.State, f.Snapshot.LastSeq)
			if !joined {
				joined = true
				close(c.ready)
			}
		case KindEntry:
			if err := c.replica.Receive(f.Entry); err != nil {
				return err
			}
			if f.Entry.Issuer == c.player {
				c.pending.Resolve(f.Entry.RequestID)
			}
			if err := c.advance(); err != nil {
				return err
			}
		case KindTick:
			c.mu.Lock()
			c.marks = append(c.marks, f.Tick)
			c.mu.Unlock()
			if err := c.advance(); err != nil {
				return err
			}
		case KindReply:
			c.pending.Resolve(f.Reply.RequestID)
			select {
			case c.replies <- f.Reply:
			default:
				log.Printf("player %d: reply to request %d dropped", c.player, f.Reply.RequestID)
			}
		case KindFault:
			return fmt.Errorf("%w: %s: %s", ErrSessionFault, f.Fault.Code, f.Fault.Message)
		default:
			return fmt.Errorf("%w: %s", ErrUnexpectedFrame, f.Kind)
		}
	}
}

// advance closes every tick whose entries have all arrived.
func (c *Client) advance() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.marks) > 0 {
		err := c.replica.AdvanceTick(c.marks[0])
		if errors.Is(err, engine.ErrTickNotReady) {
			return nil
		}
		if err != nil {
			return err
		}
		c.marks = c.marks[1:]
	}
	return nil
}

// Submit sends cmd to the authority and returns its request id. A ghost
// command is previewed and never sequenced.
func (c *Client) Submit(cmd command.Command, ghost bool) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil {
		return 0, ErrNotConnected
	}
	c.nextRequest++
	requestID := c.nextRequest
	header := command.Header{Issuer: c.player, RequestID: requestID}
	if ghost {
		header.Flags |= command.FlagGhost
	}
	frame := command.Marshal(command.Envelope{Header: header, Command: cmd})
	if err := c.stream.Send(wrapperspb.Bytes(EncodeSubmit(frame))); err != nil {
		return 0, fmt.Errorf("send request %d: %w", requestID, err)
	}
	c.pending.Track(requestID, c.now())
	return requestID, nil
}

// ExpirePending returns the requests that went unanswered for too long.
func (c *Client) ExpirePending() []uint32 {
	return c.pending.Expire(c.now())
}

// PendingCount returns how many requests still wait for an answer.
func (c *Client) PendingCount() int {
	return c.pending.Len()
}

// Close ends the session and releases a connection opened by Dial.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.stream != nil {
		if err := c.stream.CloseSend(); err != nil {
			log.Printf("player %d: close send: %v", c.player, err)
		}
	}
	c.mu.Unlock()
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}
