package wire

import "github.com/tether-io/tether/internal/models"

// EventKind discriminates frames on a subscription stream.
type EventKind string

const (
	// EventRegistered is the first frame of every subscription. Receiving
	// it means the service has recorded the listener.
	EventRegistered EventKind = "registered"

	// EventItemAdded carries an item added by any client.
	EventItemAdded EventKind = "item_added"

	// EventServiceStopping is sent before the service closes a
	// subscription during a graceful stop.
	EventServiceStopping EventKind = "service_stopping"
)

// AddItemRequest contains the item to store.
type AddItemRequest struct {
	Item models.Item `cbor:"item"`
}

// AddItemResponse is empty; success is the absence of an error status.
type AddItemResponse struct{}

// ListItemsRequest takes no parameters.
type ListItemsRequest struct{}

// ListItemsResponse holds every stored item in insertion order.
type ListItemsResponse struct {
	Items []models.Item `cbor:"items"`
}

// SubscribeRequest opens a push subscription for a listener.
type SubscribeRequest struct {
	ListenerID string `cbor:"listener_id"`
}

// Event is one frame on a subscription stream.
type Event struct {
	Kind EventKind    `cbor:"kind"`
	Item *models.Item `cbor:"item,omitempty"`
}

// UnregisterRequest removes a listener's subscription.
type UnregisterRequest struct {
	ListenerID string `cbor:"listener_id"`
}

// UnregisterResponse is empty.
type UnregisterResponse struct{}
