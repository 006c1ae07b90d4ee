package server

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tether-io/tether/internal/daemon/store"
	"github.com/tether-io/tether/internal/metrics"
	"github.com/tether-io/tether/internal/wire"
)

// itemService implements wire.ItemServiceServer.
type itemService struct {
	store   store.Store
	hub     *Hub
	metrics *metrics.Daemon
	logger  *slog.Logger
}

func (s *itemService) AddItem(ctx context.Context, req *wire.AddItemRequest) (*wire.AddItemResponse, error) {
	if err := req.Item.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.store.Add(ctx, req.Item); err != nil {
		s.logger.Error("failed to store item", "item", req.Item.Name, "error", err)
		return nil, status.Errorf(codes.Internal, "failed to store item: %v", err)
	}
	s.metrics.ItemsAdded.Inc()
	s.logger.Debug("item added", "item", req.Item.String())

	s.hub.Broadcast(req.Item)
	return &wire.AddItemResponse{}, nil
}

func (s *itemService) ListItems(ctx context.Context, _ *wire.ListItemsRequest) (*wire.ListItemsResponse, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to list items: %v", err)
	}
	return &wire.ListItemsResponse{Items: items}, nil
}

// Subscribe holds the stream open and forwards every broadcast item. The
// first frame acknowledges the registration.
func (s *itemService) Subscribe(req *wire.SubscribeRequest, stream wire.SubscribeServer) error {
	if req.ListenerID == "" {
		return status.Error(codes.InvalidArgument, "listener id is required")
	}

	sub, err := s.hub.Subscribe(req.ListenerID)
	switch {
	case errors.Is(err, errDuplicateSubscriber):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, errHubClosed):
		return status.Error(codes.Unavailable, err.Error())
	case err != nil:
		return status.Error(codes.Internal, err.Error())
	}
	defer s.hub.Unsubscribe(sub)

	logger := s.logger.With("listener", req.ListenerID)
	if err := stream.Send(&wire.Event{Kind: wire.EventRegistered}); err != nil {
		return err
	}
	logger.Info("listener registered")

	ctx := stream.Context()
	for {
		select {
		case item := <-sub.events:
			if err := stream.Send(&wire.Event{Kind: wire.EventItemAdded, Item: &item}); err != nil {
				logger.Debug("subscription send failed", "error", err)
				return err
			}
		case <-sub.done:
			logger.Info("listener unregistered")
			return nil
		case <-s.hub.Closing():
			_ = stream.Send(&wire.Event{Kind: wire.EventServiceStopping})
			return nil
		case <-ctx.Done():
			logger.Info("listener went away")
			return ctx.Err()
		}
	}
}

func (s *itemService) Unregister(_ context.Context, req *wire.UnregisterRequest) (*wire.UnregisterResponse, error) {
	if !s.hub.Remove(req.ListenerID) {
		s.logger.Debug("unregister for unknown listener", "listener", req.ListenerID)
	}
	return &wire.UnregisterResponse{}, nil
}
