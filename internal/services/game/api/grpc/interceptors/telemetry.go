package interceptors

import (
	"context"
	"log"
	"strconv"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	grpcmeta "github.com/louisbranch/parkline/internal/services/game/api/grpc/metadata"
	"github.com/louisbranch/parkline/internal/services/game/observability/audit"
	"github.com/louisbranch/parkline/internal/services/game/observability/audit/events"
	"github.com/louisbranch/parkline/internal/services/game/storage"
)

// SessionAuditInterceptor emits an audit event each time a streaming call
// ends, with the caller, status code and how long the stream stayed open.
func SessionAuditInterceptor(emitter *audit.Emitter, sessionID string, now func() time.Time) grpc.StreamServerInterceptor {
	if now == nil {
		now = time.Now
	}
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		started := now()
		err := handler(srv, ss)
		if emitter == nil {
			return err
		}

		ctx := ss.Context()
		severity := audit.SeverityInfo
		code := codes.OK
		if err != nil {
			code = status.Code(err)
			if isServerFault(code) {
				severity = audit.SeverityError
			} else {
				severity = audit.SeverityWarn
			}
		}

		actorID := ""
		if player, perr := grpcmeta.PlayerIDFromContext(ctx); perr == nil {
			actorID = strconv.FormatUint(uint64(player), 10)
		}

		// The stream context is done by now; the event must still be written.
		emitErr := emitter.Emit(context.WithoutCancel(ctx), storage.AuditEvent{
			EventName: events.SessionEnded,
			Severity:  string(severity),
			SessionID: sessionID,
			ActorID:   actorID,
			RequestID: grpcmeta.RequestIDFromContext(ctx),
			Attributes: map[string]any{
				"method":      info.FullMethod,
				"code":        code.String(),
				"duration_ms": now().Sub(started).Milliseconds(),
			},
		})
		if emitErr != nil {
			log.Printf("audit emit %s: %v", info.FullMethod, emitErr)
		}
		return err
	}
}

func isServerFault(code codes.Code) bool {
	switch code {
	case codes.Internal, codes.Unknown, codes.DataLoss, codes.Unavailable:
		return true
	default:
		return false
	}
}
