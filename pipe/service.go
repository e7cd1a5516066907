package pipe

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	// ServiceName is the fully-qualified name of the pipe service.
	ServiceName = "asyncstream.pipe.v1.PipeService"

	openMethodName = "/" + ServiceName + "/Open"
)

// PipeServiceServer is the server API for the pipe service.
type PipeServiceServer interface {
	Open(PipeService_OpenServer) error
}

// PipeService_OpenServer is the server side of an Open RPC.
type PipeService_OpenServer interface {
	Send(*wrapperspb.BytesValue) error
	Recv() (*wrapperspb.BytesValue, error)
	grpc.ServerStream
}

// PipeServiceClient is the client API for the pipe service.
type PipeServiceClient interface {
	Open(ctx context.Context, opts ...grpc.CallOption) (PipeService_OpenClient, error)
}

// PipeService_OpenClient is the client side of an Open RPC.
type PipeService_OpenClient interface {
	Send(*wrapperspb.BytesValue) error
	Recv() (*wrapperspb.BytesValue, error)
	grpc.ClientStream
}

// ServiceDesc describes the pipe service, for registering a
// PipeServiceServer with a grpc.ServiceRegistrar.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PipeServiceServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Open",
			Handler:       openHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "asyncstream/pipe/v1/pipe.proto",
}

// RegisterPipeServiceServer registers srv with the given registrar.
func RegisterPipeServiceServer(reg grpc.ServiceRegistrar, srv PipeServiceServer) {
	reg.RegisterService(&ServiceDesc, srv)
}

func openHandler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(PipeServiceServer).Open(&openServer{stream})
}

type openServer struct {
	grpc.ServerStream
}

func (s *openServer) Send(m *wrapperspb.BytesValue) error {
	return s.ServerStream.SendMsg(m)
}

func (s *openServer) Recv() (*wrapperspb.BytesValue, error) {
	m := new(wrapperspb.BytesValue)
	if err := s.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

type pipeServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewPipeServiceClient returns a client of the pipe service that issues RPCs
// over the given channel.
func NewPipeServiceClient(cc grpc.ClientConnInterface) PipeServiceClient {
	return &pipeServiceClient{cc: cc}
}

func (c *pipeServiceClient) Open(ctx context.Context, opts ...grpc.CallOption) (PipeService_OpenClient, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], openMethodName, opts...)
	if err != nil {
		return nil, err
	}
	return &openClient{stream}, nil
}

type openClient struct {
	grpc.ClientStream
}

func (c *openClient) Send(m *wrapperspb.BytesValue) error {
	return c.ClientStream.SendMsg(m)
}

func (c *openClient) Recv() (*wrapperspb.BytesValue, error) {
	m := new(wrapperspb.BytesValue)
	if err := c.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
