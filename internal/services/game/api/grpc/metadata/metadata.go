package metadata

import (
	"context"
	"strconv"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	apperrors "github.com/louisbranch/parkline/internal/platform/errors"
	"github.com/louisbranch/parkline/internal/platform/id"
	"github.com/louisbranch/parkline/internal/services/game/domain/world"
)

// RequestIDHeader is the gRPC metadata key for request correlation IDs.
const RequestIDHeader = "x-parkline-request-id"

// PlayerIDHeader is the gRPC metadata key for the connecting participant.
// The authority overwrites the issuer of every submitted command with it.
const PlayerIDHeader = "x-parkline-player-id"

// PlayerNameHeader is the gRPC metadata key for the display name a
// participant joins with.
const PlayerNameHeader = "x-parkline-player-name"

// LocaleHeader is the gRPC metadata key for the locale a participant wants
// error messages rendered in.
const LocaleHeader = "x-parkline-locale"

// contextKey stores metadata values in context.
type contextKey string

// requestIDContextKey stores the request ID in context.
const requestIDContextKey contextKey = "parkline-request-id"

// RequestIDFromContext returns the request ID stored in context.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDContextKey).(string)
	return value
}

// WithRequestID stores the request ID in context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// PlayerIDFromContext parses the participant id from incoming metadata.
func PlayerIDFromContext(ctx context.Context) (world.PlayerID, error) {
	raw := strings.TrimSpace(metadataValueFromIncomingContext(ctx, PlayerIDHeader))
	if raw == "" {
		return 0, apperrors.New(apperrors.CodePlayerIDRequired, "player id header is required")
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, apperrors.WithMetadata(apperrors.CodePlayerIDInvalid, "player id header is invalid", map[string]string{"PlayerID": raw})
	}
	return world.PlayerID(v), nil
}

// PlayerNameFromContext returns the display name from incoming metadata.
func PlayerNameFromContext(ctx context.Context) string {
	return strings.TrimSpace(metadataValueFromIncomingContext(ctx, PlayerNameHeader))
}

// WithOutgoingPlayer attaches the participant id and display name to
// outgoing metadata. An empty name is omitted.
func WithOutgoingPlayer(ctx context.Context, player world.PlayerID, name string) context.Context {
	ctx = metadata.AppendToOutgoingContext(ctx, PlayerIDHeader, strconv.FormatUint(uint64(player), 10))
	if name != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, PlayerNameHeader, name)
	}
	return ctx
}

// LocaleFromContext returns the requested locale from incoming metadata.
// Unknown or empty locales fall back to the base catalog when rendered.
func LocaleFromContext(ctx context.Context) string {
	return strings.TrimSpace(metadataValueFromIncomingContext(ctx, LocaleHeader))
}

// WithOutgoingLocale asks the authority to render errors in locale.
func WithOutgoingLocale(ctx context.Context, locale string) context.Context {
	if locale = strings.TrimSpace(locale); locale == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, LocaleHeader, locale)
}

// IsPrintableASCII reports whether a string contains only printable ASCII characters.
func IsPrintableASCII(value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < 0x20 || value[i] > 0x7e {
			return false
		}
	}
	return true
}

// FirstMetadataValue returns the first printable ASCII metadata value for a key.
// Printable filtering drops control characters before values reach logs.
func FirstMetadataValue(md metadata.MD, key string) string {
	if len(md) == 0 {
		return ""
	}
	for mdKey, values := range md {
		if !strings.EqualFold(mdKey, key) {
			continue
		}
		for _, value := range values {
			if IsPrintableASCII(value) {
				return value
			}
		}
	}
	return ""
}

// UnaryServerInterceptor ensures every unary call carries a request ID.
func UnaryServerInterceptor(idGenerator func() (string, error)) grpc.UnaryServerInterceptor {
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		updatedCtx, requestID, err := ensureRequestMetadata(ctx, idGenerator)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "ensure request metadata: %v", err)
		}
		if err := grpc.SetHeader(updatedCtx, responseHeaders(requestID)); err != nil {
			return nil, status.Errorf(codes.Internal, "set response metadata: %v", err)
		}
		return handler(updatedCtx, req)
	}
}

// StreamServerInterceptor ensures every stream carries a request ID. The ID
// names the connection in logs and audit events for its whole lifetime.
func StreamServerInterceptor(idGenerator func() (string, error)) grpc.StreamServerInterceptor {
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	return func(srv any, stream grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		updatedCtx, requestID, err := ensureRequestMetadata(stream.Context(), idGenerator)
		if err != nil {
			return status.Errorf(codes.Internal, "ensure request metadata: %v", err)
		}
		if err := stream.SetHeader(responseHeaders(requestID)); err != nil {
			return status.Errorf(codes.Internal, "set response metadata: %v", err)
		}
		return handler(srv, &wrappedServerStream{ServerStream: stream, ctx: updatedCtx})
	}
}

// wrappedServerStream overrides the context for a gRPC stream.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the updated stream context.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}

// ensureRequestMetadata ensures the request ID exists and returns updated context.
func ensureRequestMetadata(ctx context.Context, idGenerator func() (string, error)) (context.Context, string, error) {
	requestID := metadataValueFromIncomingContext(ctx, RequestIDHeader)
	if requestID == "" {
		generatedID, err := idGenerator()
		if err != nil {
			return nil, "", err
		}
		requestID = generatedID
	}
	return WithRequestID(ctx, requestID), requestID, nil
}

func metadataValueFromIncomingContext(ctx context.Context, header string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	return FirstMetadataValue(md, header)
}

// responseHeaders builds response metadata headers from IDs.
func responseHeaders(requestID string) metadata.MD {
	return metadata.Pairs(RequestIDHeader, requestID)
}
