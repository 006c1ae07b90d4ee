package server

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/tether-io/tether/internal/metrics"
	"github.com/tether-io/tether/internal/models"
)

// subscriberBuffer bounds undelivered events per subscriber.
const subscriberBuffer = 64

var (
	errDuplicateSubscriber = errors.New("listener already subscribed")
	errHubClosed           = errors.New("service is stopping")
)

// subscriber is one open push subscription.
type subscriber struct {
	id     string
	events chan models.Item
	done   chan struct{}
	once   sync.Once
}

func (s *subscriber) end() {
	s.once.Do(func() { close(s.done) })
}

// Hub fans item events out to subscribers.
type Hub struct {
	logger  *slog.Logger
	metrics *metrics.Daemon

	mu      sync.Mutex
	subs    map[string]*subscriber
	closing chan struct{}
	closed  bool
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger, m *metrics.Daemon) *Hub {
	return &Hub{
		logger:  logger,
		metrics: m,
		subs:    make(map[string]*subscriber),
		closing: make(chan struct{}),
	}
}

// Subscribe adds a subscriber for id. A listener may hold at most one
// subscription.
func (h *Hub) Subscribe(id string) (*subscriber, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, errHubClosed
	}
	if _, ok := h.subs[id]; ok {
		return nil, errDuplicateSubscriber
	}
	sub := &subscriber{
		id:     id,
		events: make(chan models.Item, subscriberBuffer),
		done:   make(chan struct{}),
	}
	h.subs[id] = sub
	h.metrics.Subscribers.Set(float64(len(h.subs)))
	return sub, nil
}

// Unsubscribe removes sub if it is still registered.
func (h *Hub) Unsubscribe(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[sub.id] == sub {
		delete(h.subs, sub.id)
		h.metrics.Subscribers.Set(float64(len(h.subs)))
	}
}

// Remove ends the subscription held by id. Reports whether one existed.
func (h *Hub) Remove(id string) bool {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
		h.metrics.Subscribers.Set(float64(len(h.subs)))
	}
	h.mu.Unlock()
	if ok {
		sub.end()
	}
	return ok
}

// Broadcast queues item for every subscriber. A subscriber whose buffer
// is full misses the event.
func (h *Hub) Broadcast(item models.Item) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subs {
		select {
		case sub.events <- item:
			h.metrics.EventsSent.Inc()
		default:
			h.metrics.EventsDropped.Inc()
			h.logger.Warn("subscriber too slow, dropping event", "listener", id, "item", item.Name)
		}
	}
}

// Closing is closed when the hub stops accepting subscribers.
func (h *Hub) Closing() <-chan struct{} {
	return h.closing
}

// Close stops the hub. Open subscriptions observe Closing.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.closing)
}

// Count returns the number of open subscriptions.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
