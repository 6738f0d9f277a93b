package grpcnode

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// CryptoLookupServer is the server API for the lookup service.
//
// Requests and replies are wire-encoded ledger.Query and ledger.Response
// messages carried in BytesValue wrappers, so no codegen is needed.
type CryptoLookupServer interface {
	GetByKey(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

// UnimplementedCryptoLookupServer can be embedded to have forward compatible implementations.
type UnimplementedCryptoLookupServer struct{}

func (UnimplementedCryptoLookupServer) GetByKey(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method GetByKey not implemented")
}

// RegisterCryptoLookupServer registers the lookup service on a gRPC server.
func RegisterCryptoLookupServer(s grpc.ServiceRegistrar, srv CryptoLookupServer) {
	s.RegisterService(&CryptoLookup_ServiceDesc, srv)
}

// CryptoLookupClient is the client API for the lookup service.
type CryptoLookupClient interface {
	GetByKey(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
}

type cryptoLookupClient struct{ cc grpc.ClientConnInterface }

func NewCryptoLookupClient(cc grpc.ClientConnInterface) CryptoLookupClient {
	return &cryptoLookupClient{cc: cc}
}

const getByKeyMethod = "/xdao.keysig.ledger.v1.CryptoLookup/GetByKey"

func (c *cryptoLookupClient) GetByKey(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	err := c.cc.Invoke(ctx, getByKeyMethod, in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func _CryptoLookup_GetByKey_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CryptoLookupServer).GetByKey(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getByKeyMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CryptoLookupServer).GetByKey(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// CryptoLookup_ServiceDesc is the grpc.ServiceDesc for the lookup service.
var CryptoLookup_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "xdao.keysig.ledger.v1.CryptoLookup",
	HandlerType: (*CryptoLookupServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetByKey", Handler: _CryptoLookup_GetByKey_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "crypto_lookup.proto",
}
