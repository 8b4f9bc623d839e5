// Package grpcserver exposes free-slot search and the overlap check to other
// services. Messages are google.protobuf.Struct values so callers need no
// generated stubs.
package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "clinicagenda.scheduling.v1.SchedulingService"

const (
	FindFreeSlotsMethod = "/" + ServiceName + "/FindFreeSlots"
	CheckOverlapMethod  = "/" + ServiceName + "/CheckOverlap"
)

type SchedulingServer interface {
	FindFreeSlots(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	CheckOverlap(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SchedulingServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "FindFreeSlots", Handler: unaryHandler(FindFreeSlotsMethod, SchedulingServer.FindFreeSlots)},
		{MethodName: "CheckOverlap", Handler: unaryHandler(CheckOverlapMethod, SchedulingServer.CheckOverlap)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "clinicagenda/scheduling/v1/scheduling.proto",
}

type method func(SchedulingServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call method) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SchedulingServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SchedulingServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func Register(s grpc.ServiceRegistrar, srv SchedulingServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls SchedulingService over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) FindFreeSlots(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FindFreeSlotsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CheckOverlap(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, CheckOverlapMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
