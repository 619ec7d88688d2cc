package replication

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	apperrors "github.com/louisbranch/parkline/internal/platform/errors"
	grpcmeta "github.com/louisbranch/parkline/internal/services/game/api/grpc/metadata"
	"github.com/louisbranch/parkline/internal/services/game/domain/actions"
	"github.com/louisbranch/parkline/internal/services/game/domain/command"
	"github.com/louisbranch/parkline/internal/services/game/domain/engine"
	"github.com/louisbranch/parkline/internal/services/game/domain/world"
)

var (
	// ErrDispatcherRequired indicates a missing dispatcher.
	ErrDispatcherRequired = errors.New("dispatcher is required")
	// ErrHubRequired indicates a missing hub.
	ErrHubRequired = errors.New("hub is required")
)

// Dispatcher is the part of the authority a session needs.
type Dispatcher interface {
	Submit(env command.Envelope) error
	SubmitFrame(ctx context.Context, issuer world.PlayerID, frame []byte) error
	WithSnapshot(fn func(state *world.State, lastSeq uint64))
}

// Auditor records sessions the authority closes.
type Auditor interface {
	SessionFaulted(ctx context.Context, player world.PlayerID, reason string)
}

// ServerConfig wires a Server.
type ServerConfig struct {
	Dispatcher Dispatcher
	Hub        *Hub
	Auditor    Auditor
	// JoinGroup returns the group a first-time participant joins with.
	JoinGroup func() world.GroupID
	// Buffer is the number of updates a session may lag behind.
	Buffer int
}

// Server is the authority's replication endpoint.
type Server struct {
	dispatcher Dispatcher
	hub        *Hub
	auditor    Auditor
	joinGroup  func() world.GroupID
	buffer     int
}

// NewServer builds a replication server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Dispatcher == nil {
		return nil, ErrDispatcherRequired
	}
	if cfg.Hub == nil {
		return nil, ErrHubRequired
	}
	joinGroup := cfg.JoinGroup
	if joinGroup == nil {
		joinGroup = func() world.GroupID { return 0 }
	}
	return &Server{
		dispatcher: cfg.Dispatcher,
		hub:        cfg.Hub,
		auditor:    cfg.Auditor,
		joinGroup:  joinGroup,
		buffer:     cfg.Buffer,
	}, nil
}

// Session joins the caller to the park and streams the session until either
// side ends it.
func (s *Server) Session(stream SessionServer) error {
	ctx := stream.Context()
	locale := grpcmeta.LocaleFromContext(ctx)
	player, err := grpcmeta.PlayerIDFromContext(ctx)
	if err != nil {
		return statusFor(err, locale)
	}
	if player == world.HostPlayerID {
		return apperrors.New(apperrors.CodePlayerIDInvalid, "the host player cannot join remotely").ToGRPCStatus(locale)
	}
	name := grpcmeta.PlayerNameFromContext(ctx)
	if name == "" {
		name = fmt.Sprintf("Player %d", player)
	}

	join := command.Envelope{
		Header:  command.Header{Issuer: world.HostPlayerID},
		Command: &actions.PlayerJoin{Player: player, Name: name, Group: s.joinGroup()},
	}
	if err := s.dispatcher.Submit(join); err != nil {
		return apperrors.Wrap(apperrors.CodeTooManyPending, "join could not be queued", err).ToGRPCStatus(locale)
	}

	var (
		sub      *Subscription
		snapshot []byte
		snapErr  error
	)
	s.dispatcher.WithSnapshot(func(state *world.State, lastSeq uint64) {
		sub = s.hub.SubscribePlayer(player, s.buffer)
		snapshot, snapErr = EncodeSnapshot(state, lastSeq)
	})
	defer sub.Close()
	if snapErr != nil {
		return status.Errorf(codes.Internal, "snapshot: %v", snapErr)
	}
	if err := stream.Send(wrapperspb.Bytes(snapshot)); err != nil {
		return err
	}
	log.Printf("player %d joined as %q (request %s)", player, name, grpcmeta.RequestIDFromContext(ctx))

	recvErr := make(chan error, 1)
	go func() {
		recvErr <- s.receive(ctx, player, locale, stream)
	}()

	for {
		select {
		case err := <-recvErr:
			log.Printf("player %d left: %v", player, err)
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		case u, ok := <-sub.Updates():
			if !ok {
				return s.fault(ctx, stream, player, locale, sub.Err())
			}
			if err := stream.Send(wrapperspb.Bytes(encodeUpdate(u))); err != nil {
				return err
			}
		}
	}
}

// receive forwards submitted commands until the stream ends. Commands the
// queue refuses are dropped; the participant's pending timeout covers them.
func (s *Server) receive(ctx context.Context, player world.PlayerID, locale string, stream SessionServer) error {
	for {
		msg, err := stream.Recv()
		if err != nil {
			return err
		}
		f, err := DecodeFrame(msg.GetValue())
		if err != nil || f.Kind != KindSubmit {
			return apperrors.Wrap(apperrors.CodeFrameMalformed, "expected a submit frame", err).ToGRPCStatus(locale)
		}
		err = s.dispatcher.SubmitFrame(ctx, player, f.Command)
		switch {
		case err == nil, command.IsDecodeError(err):
		case errors.Is(err, engine.ErrQueueFull), errors.Is(err, engine.ErrIssuerLimit):
			log.Printf("player %d: command dropped: %v", player, err)
		default:
			return err
		}
	}
}

func (s *Server) fault(ctx context.Context, stream SessionServer, player world.PlayerID, locale string, cause error) error {
	code := apperrors.CodeSessionClosed
	switch {
	case errors.Is(cause, ErrSlowConsumer):
		code = apperrors.CodeSessionSlowConsumer
	case command.IsInvariantViolation(cause):
		code = apperrors.CodeSessionDesync
	}
	appErr := apperrors.Wrap(code, fmt.Sprintf("session closed: %v", cause), cause)
	if s.auditor != nil && !errors.Is(cause, ErrHubClosed) {
		s.auditor.SessionFaulted(ctx, player, string(code))
	}
	if err := stream.Send(wrapperspb.Bytes(EncodeFault(Fault{Code: string(code), Message: appErr.LocalizedMessage(locale)}))); err != nil {
		log.Printf("player %d: send fault: %v", player, err)
	}
	return appErr.ToGRPCStatus(locale)
}

func encodeUpdate(u Update) []byte {
	switch {
	case u.Entry != nil:
		return EncodeEntry(*u.Entry)
	case u.Tick != nil:
		return EncodeTick(*u.Tick)
	default:
		return EncodeReply(*u.Reply)
	}
}

func statusFor(err error, locale string) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr.ToGRPCStatus(locale)
	}
	return status.Error(codes.Internal, err.Error())
}

var _ ReplicationServer = (*Server)(nil)
