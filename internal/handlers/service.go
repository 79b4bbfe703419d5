package handlers

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name
const ServiceName = "kazoku.v1.RelationshipService"

// Full method names, as seen by interceptors
const (
	RelationshipService_ResolveDirection_FullMethodName = "/" + ServiceName + "/ResolveDirection"
	RelationshipService_SmartCreate_FullMethodName      = "/" + ServiceName + "/SmartCreate"
	RelationshipService_PlainCreate_FullMethodName      = "/" + ServiceName + "/PlainCreate"
	RelationshipService_Delete_FullMethodName           = "/" + ServiceName + "/Delete"
	RelationshipService_GetAll_FullMethodName           = "/" + ServiceName + "/GetAll"
	RelationshipService_AddBothParents_FullMethodName   = "/" + ServiceName + "/AddBothParents"
	RelationshipService_Import_FullMethodName           = "/" + ServiceName + "/Import"
	RelationshipService_Export_FullMethodName           = "/" + ServiceName + "/Export"
)

// RelationshipServiceServer is the server API for RelationshipService.
// Requests and responses are google.protobuf.Struct bodies.
type RelationshipServiceServer interface {
	ResolveDirection(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SmartCreate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PlainCreate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Delete(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAll(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddBothParents(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Import(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Export(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedRelationshipServiceServer can be embedded for forward compatibility
type UnimplementedRelationshipServiceServer struct{}

func (UnimplementedRelationshipServiceServer) ResolveDirection(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ResolveDirection not implemented")
}
func (UnimplementedRelationshipServiceServer) SmartCreate(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method SmartCreate not implemented")
}
func (UnimplementedRelationshipServiceServer) PlainCreate(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method PlainCreate not implemented")
}
func (UnimplementedRelationshipServiceServer) Delete(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Delete not implemented")
}
func (UnimplementedRelationshipServiceServer) GetAll(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetAll not implemented")
}
func (UnimplementedRelationshipServiceServer) AddBothParents(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method AddBothParents not implemented")
}
func (UnimplementedRelationshipServiceServer) Import(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Import not implemented")
}
func (UnimplementedRelationshipServiceServer) Export(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Export not implemented")
}

// RegisterRelationshipServiceServer registers srv on s
func RegisterRelationshipServiceServer(s grpc.ServiceRegistrar, srv RelationshipServiceServer) {
	s.RegisterService(&RelationshipService_ServiceDesc, srv)
}

type unaryMethod func(RelationshipServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RelationshipServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(RelationshipServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// RelationshipService_ServiceDesc is the grpc.ServiceDesc for RelationshipService
var RelationshipService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RelationshipServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ResolveDirection", Handler: unaryHandler(RelationshipService_ResolveDirection_FullMethodName, RelationshipServiceServer.ResolveDirection)},
		{MethodName: "SmartCreate", Handler: unaryHandler(RelationshipService_SmartCreate_FullMethodName, RelationshipServiceServer.SmartCreate)},
		{MethodName: "PlainCreate", Handler: unaryHandler(RelationshipService_PlainCreate_FullMethodName, RelationshipServiceServer.PlainCreate)},
		{MethodName: "Delete", Handler: unaryHandler(RelationshipService_Delete_FullMethodName, RelationshipServiceServer.Delete)},
		{MethodName: "GetAll", Handler: unaryHandler(RelationshipService_GetAll_FullMethodName, RelationshipServiceServer.GetAll)},
		{MethodName: "AddBothParents", Handler: unaryHandler(RelationshipService_AddBothParents_FullMethodName, RelationshipServiceServer.AddBothParents)},
		{MethodName: "Import", Handler: unaryHandler(RelationshipService_Import_FullMethodName, RelationshipServiceServer.Import)},
		{MethodName: "Export", Handler: unaryHandler(RelationshipService_Export_FullMethodName, RelationshipServiceServer.Export)},
	},
	Streams: []grpc.StreamDesc{},
}

// RelationshipServiceClient is the client API for RelationshipService
type RelationshipServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewRelationshipServiceClient creates a client over an existing connection
func NewRelationshipServiceClient(cc grpc.ClientConnInterface) *RelationshipServiceClient {
	return &RelationshipServiceClient{cc: cc}
}

func (c *RelationshipServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RelationshipServiceClient) ResolveDirection(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, RelationshipService_ResolveDirection_FullMethodName, in, opts...)
}

func (c *RelationshipServiceClient) SmartCreate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, RelationshipService_SmartCreate_FullMethodName, in, opts...)
}

func (c *RelationshipServiceClient) PlainCreate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, RelationshipService_PlainCreate_FullMethodName, in, opts...)
}

func (c *RelationshipServiceClient) Delete(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, RelationshipService_Delete_FullMethodName, in, opts...)
}

func (c *RelationshipServiceClient) GetAll(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, RelationshipService_GetAll_FullMethodName, in, opts...)
}

func (c *RelationshipServiceClient) AddBothParents(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, RelationshipService_AddBothParents_FullMethodName, in, opts...)
}

func (c *RelationshipServiceClient) Import(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, RelationshipService_Import_FullMethodName, in, opts...)
}

func (c *RelationshipServiceClient) Export(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, RelationshipService_Export_FullMethodName, in, opts...)
}
