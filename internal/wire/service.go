package wire

import (
	"context"

	"google.golang.org/grpc"

	"github.com/tether-io/tether/internal/models"
)

// ServiceName is the fully qualified gRPC service name. It is also the
// name reported to the health service.
const ServiceName = "tether.ItemService"

// Full method names.
const (
	AddItemMethod    = "/" + ServiceName + "/AddItem"
	ListItemsMethod  = "/" + ServiceName + "/ListItems"
	SubscribeMethod  = "/" + ServiceName + "/Subscribe"
	UnregisterMethod = "/" + ServiceName + "/Unregister"
)

// ============================================================================
// Server side
// ============================================================================

// ItemServiceServer is the server interface for ItemService.
type ItemServiceServer interface {
	AddItem(context.Context, *AddItemRequest) (*AddItemResponse, error)
	ListItems(context.Context, *ListItemsRequest) (*ListItemsResponse, error)
	Subscribe(*SubscribeRequest, SubscribeServer) error
	Unregister(context.Context, *UnregisterRequest) (*UnregisterResponse, error)
}

// SubscribeServer is the server end of a subscription stream.
type SubscribeServer interface {
	Send(*Event) error
	grpc.ServerStream
}

type subscribeServer struct {
	grpc.ServerStream
}

func (s *subscribeServer) Send(ev *Event) error {
	return s.ServerStream.SendMsg(ev)
}

// RegisterItemServiceServer registers the ItemServiceServer with the gRPC server.
func RegisterItemServiceServer(s grpc.ServiceRegistrar, srv ItemServiceServer) {
	s.RegisterService(&itemServiceDesc, srv)
}

var itemServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ItemServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AddItem", Handler: addItemHandler},
		{MethodName: "ListItems", Handler: listItemsHandler},
		{MethodName: "Unregister", Handler: unregisterHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Subscribe", Handler: subscribeHandler, ServerStreams: true},
	},
	Metadata: "tether/items",
}

func addItemHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(AddItemRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ItemServiceServer).AddItem(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AddItemMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ItemServiceServer).AddItem(ctx, req.(*AddItemRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listItemsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListItemsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ItemServiceServer).ListItems(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListItemsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ItemServiceServer).ListItems(ctx, req.(*ListItemsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func unregisterHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(UnregisterRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ItemServiceServer).Unregister(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: UnregisterMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ItemServiceServer).Unregister(ctx, req.(*UnregisterRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(SubscribeRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ItemServiceServer).Subscribe(in, &subscribeServer{stream})
}

// ============================================================================
// Client side
// ============================================================================

// ItemServiceClient issues ItemService calls over a gRPC connection.
type ItemServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewItemServiceClient creates a client bound to cc.
func NewItemServiceClient(cc grpc.ClientConnInterface) *ItemServiceClient {
	return &ItemServiceClient{cc: cc}
}

// AddItem stores an item on the service.
func (c *ItemServiceClient) AddItem(ctx context.Context, item models.Item) error {
	out := new(AddItemResponse)
	return c.cc.Invoke(ctx, AddItemMethod, &AddItemRequest{Item: item}, out, callOption())
}

// ListItems returns every stored item.
func (c *ItemServiceClient) ListItems(ctx context.Context) ([]models.Item, error) {
	out := new(ListItemsResponse)
	if err := c.cc.Invoke(ctx, ListItemsMethod, &ListItemsRequest{}, out, callOption()); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Unregister removes a listener's subscription. The service ends the
// matching stream.
func (c *ItemServiceClient) Unregister(ctx context.Context, listenerID string) error {
	out := new(UnregisterResponse)
	return c.cc.Invoke(ctx, UnregisterMethod, &UnregisterRequest{ListenerID: listenerID}, out, callOption())
}

// Subscribe opens a subscription stream. The stream lives as long as ctx.
func (c *ItemServiceClient) Subscribe(ctx context.Context, listenerID string) (*SubscribeClient, error) {
	stream, err := c.cc.NewStream(ctx, &itemServiceDesc.Streams[0], SubscribeMethod, callOption())
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&SubscribeRequest{ListenerID: listenerID}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &SubscribeClient{stream: stream}, nil
}

// SubscribeClient is the client end of a subscription stream.
type SubscribeClient struct {
	stream grpc.ClientStream
}

// Recv blocks for the next event.
func (s *SubscribeClient) Recv() (*Event, error) {
	ev := new(Event)
	if err := s.stream.RecvMsg(ev); err != nil {
		return nil, err
	}
	return ev, nil
}
