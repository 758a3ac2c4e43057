package grpccas

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const serviceName = "skydb.blob.v1.Blobs"

// BlobsServer is the server API for the blob service of skydb-registryd.
//
// Blob bodies travel as google.protobuf.BytesValue; references and blob
// descriptions are google.protobuf.Struct with the fields listed in wire.go.
// No protoc step is needed.
type BlobsServer interface {
	Put(context.Context, *wrapperspb.BytesValue) (*structpb.Struct, error)
	Get(context.Context, *structpb.Struct) (*wrapperspb.BytesValue, error)
	Has(context.Context, *structpb.Struct) (*wrapperspb.BoolValue, error)
	Stat(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedBlobsServer can be embedded to have forward compatible implementations.
type UnimplementedBlobsServer struct{}

func (UnimplementedBlobsServer) Put(context.Context, *wrapperspb.BytesValue) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Put not implemented")
}
func (UnimplementedBlobsServer) Get(context.Context, *structpb.Struct) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Get not implemented")
}
func (UnimplementedBlobsServer) Has(context.Context, *structpb.Struct) (*wrapperspb.BoolValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Has not implemented")
}
func (UnimplementedBlobsServer) Stat(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Stat not implemented")
}

// RegisterBlobsServer registers the blob service on a gRPC server.
func RegisterBlobsServer(s grpc.ServiceRegistrar, srv BlobsServer) {
	s.RegisterService(&Blobs_ServiceDesc, srv)
}

// BlobsClient is the client API for the blob service.
type BlobsClient interface {
	Put(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	Get(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Has(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error)
	Stat(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type blobsClient struct{ cc grpc.ClientConnInterface }

func NewBlobsClient(cc grpc.ClientConnInterface) BlobsClient { return &blobsClient{cc: cc} }

func fullMethod(name string) string { return "/" + serviceName + "/" + name }

// invoke calls method and decodes the reply into a fresh Resp.
func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *blobsClient) Put(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, "Put", in, opts)
}

func (c *blobsClient) Get(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return invoke[wrapperspb.BytesValue](ctx, c.cc, "Get", in, opts)
}

func (c *blobsClient) Has(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	return invoke[wrapperspb.BoolValue](ctx, c.cc, "Has", in, opts)
}

func (c *blobsClient) Stat(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, "Stat", in, opts)
}

// unary builds the grpc.MethodHandler for one method. call receives the
// decoded request.
func unary[Req any](method string, call func(BlobsServer, context.Context, *Req) (any, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(BlobsServer)
		if interceptor == nil {
			return call(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(*Req))
		})
	}
}

// Blobs_ServiceDesc is the grpc.ServiceDesc for the blob service.
var Blobs_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*BlobsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Put", Handler: unary("Put", func(s BlobsServer, ctx context.Context, in *wrapperspb.BytesValue) (any, error) {
			return s.Put(ctx, in)
		})},
		{MethodName: "Get", Handler: unary("Get", func(s BlobsServer, ctx context.Context, in *structpb.Struct) (any, error) {
			return s.Get(ctx, in)
		})},
		{MethodName: "Has", Handler: unary("Has", func(s BlobsServer, ctx context.Context, in *structpb.Struct) (any, error) {
			return s.Has(ctx, in)
		})},
		{MethodName: "Stat", Handler: unary("Stat", func(s BlobsServer, ctx context.Context, in *structpb.Struct) (any, error) {
			return s.Stat(ctx, in)
		})},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "blobs.proto",
}
