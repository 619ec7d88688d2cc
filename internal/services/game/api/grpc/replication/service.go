package replication

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "parkline.replication.v1.Replication"
	// SessionFullMethodName is the bidirectional session method.
	SessionFullMethodName = "/" + ServiceName + "/Session"
)

// SessionServer is the authority side of a session stream.
type SessionServer = grpc.BidiStreamingServer[wrapperspb.BytesValue, wrapperspb.BytesValue]

// SessionClient is the participant side of a session stream.
type SessionClient = grpc.BidiStreamingClient[wrapperspb.BytesValue, wrapperspb.BytesValue]

// ReplicationServer serves session streams.
type ReplicationServer interface {
	Session(SessionServer) error
}

// ServiceDesc describes the replication service for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReplicationServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Session",
			Handler:       sessionHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
}

// RegisterReplicationServer registers srv with s.
func RegisterReplicationServer(s grpc.ServiceRegistrar, srv ReplicationServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func sessionHandler(srv any, stream grpc.ServerStream) error {
	return srv.(ReplicationServer).Session(&grpc.GenericServerStream[wrapperspb.BytesValue, wrapperspb.BytesValue]{ServerStream: stream})
}

// OpenSession starts a session stream on cc.
func OpenSession(ctx context.Context, cc grpc.ClientConnInterface, opts ...grpc.CallOption) (SessionClient, error) {
	stream, err := cc.NewStream(ctx, &ServiceDesc.Streams[0], SessionFullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	return &grpc.GenericClientStream[wrapperspb.BytesValue, wrapperspb.BytesValue]{ClientStream: stream}, nil
}
