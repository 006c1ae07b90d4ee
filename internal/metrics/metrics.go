// Package metrics defines the Prometheus collectors for the client
// supervisor and the reference service.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/tether-io/tether/internal/link"
)

// Client records supervisor lifecycle signals. It implements
// link.Observer.
type Client struct {
	State       prometheus.Gauge
	Transitions *prometheus.CounterVec
	Reconnects  prometheus.Counter
	Delivered   prometheus.Counter
	Dropped     prometheus.Counter
}

var _ link.Observer = (*Client)(nil)

// NewClient registers the client collectors with reg.
func NewClient(reg prometheus.Registerer) *Client {
	f := promauto.With(reg)
	return &Client{
		State:       f.NewGauge(prometheus.GaugeOpts{Name: "tether_link_state", Help: "Connection state (0 disconnected, 1 connecting, 2 ready)"}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{Name: "tether_link_transitions_total", Help: "State transitions"}, []string{"from", "to"}),
		Reconnects:  f.NewCounter(prometheus.CounterOpts{Name: "tether_link_reconnects_total", Help: "Reconnects after the remote died"}),
		Delivered:   f.NewCounter(prometheus.CounterOpts{Name: "tether_link_push_delivered_total", Help: "Push notifications queued for the sink"}),
		Dropped:     f.NewCounter(prometheus.CounterOpts{Name: "tether_link_push_dropped_total", Help: "Push notifications dropped on a full sink queue"}),
	}
}

func (c *Client) Transition(from, to link.State) {
	c.State.Set(float64(to))
	c.Transitions.WithLabelValues(from.String(), to.String()).Inc()
}

func (c *Client) Reconnect()     { c.Reconnects.Inc() }
func (c *Client) PushDelivered() { c.Delivered.Inc() }
func (c *Client) PushDropped()   { c.Dropped.Inc() }

// Daemon records service-side activity.
type Daemon struct {
	ItemsAdded    prometheus.Counter
	Subscribers   prometheus.Gauge
	EventsSent    prometheus.Counter
	EventsDropped prometheus.Counter
	RPCs          *prometheus.CounterVec
}

// NewDaemon registers the service collectors with reg.
func NewDaemon(reg prometheus.Registerer) *Daemon {
	f := promauto.With(reg)
	return &Daemon{
		ItemsAdded:    f.NewCounter(prometheus.CounterOpts{Name: "tetherd_items_added_total", Help: "Items stored"}),
		Subscribers:   f.NewGauge(prometheus.GaugeOpts{Name: "tetherd_subscribers", Help: "Open push subscriptions"}),
		EventsSent:    f.NewCounter(prometheus.CounterOpts{Name: "tetherd_events_sent_total", Help: "Push events queued for subscribers"}),
		EventsDropped: f.NewCounter(prometheus.CounterOpts{Name: "tetherd_events_dropped_total", Help: "Push events dropped for slow subscribers"}),
		RPCs:          f.NewCounterVec(prometheus.CounterOpts{Name: "tetherd_rpcs_total", Help: "Unary RPCs by method and status code"}, []string{"method", "code"}),
	}
}

// UnaryInterceptor counts unary RPCs by method and result code.
func (d *Daemon) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		d.RPCs.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
		return resp, err
	}
}

// Handler serves the collectors of g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
