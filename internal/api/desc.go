package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "xmark.v1.BookmarkService"

// BookmarkServer is the daemon side of the bookmark service. Requests and
// responses are protobuf Structs; the field names are documented on each
// method of BookmarkService.
type BookmarkServer interface {
	List(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Add(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Update(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Remove(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Join(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Complete(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResetCompletion(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Sync(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Status(context.Context, *structpb.Struct) (*structpb.Struct, error)
	History(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WatchEvents(*structpb.Struct, grpc.ServerStream) error
}

type unaryMethod func(BookmarkServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// ServiceDesc describes the bookmark service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookmarkServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "List", Handler: unaryHandler("List", BookmarkServer.List)},
		{MethodName: "Add", Handler: unaryHandler("Add", BookmarkServer.Add)},
		{MethodName: "Update", Handler: unaryHandler("Update", BookmarkServer.Update)},
		{MethodName: "Remove", Handler: unaryHandler("Remove", BookmarkServer.Remove)},
		{MethodName: "Join", Handler: unaryHandler("Join", BookmarkServer.Join)},
		{MethodName: "Complete", Handler: unaryHandler("Complete", BookmarkServer.Complete)},
		{MethodName: "ResetCompletion", Handler: unaryHandler("ResetCompletion", BookmarkServer.ResetCompletion)},
		{MethodName: "Sync", Handler: unaryHandler("Sync", BookmarkServer.Sync)},
		{MethodName: "Status", Handler: unaryHandler("Status", BookmarkServer.Status)},
		{MethodName: "History", Handler: unaryHandler("History", BookmarkServer.History)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "WatchEvents", Handler: watchEventsHandler, ServerStreams: true},
	},
	Metadata: "xmark/v1/bookmark.proto",
}

// RegisterBookmarkServer registers srv on s.
func RegisterBookmarkServer(s grpc.ServiceRegistrar, srv BookmarkServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unaryHandler(name string, call unaryMethod) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BookmarkServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(BookmarkServer), ctx, req.(*structpb.Struct))
		})
	}
}

func watchEventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(BookmarkServer).WatchEvents(in, stream)
}
