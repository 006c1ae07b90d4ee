package binder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/tether-io/tether/internal/link"
	"github.com/tether-io/tether/internal/models"
	"github.com/tether-io/tether/internal/wire"
)

// dial connects to the socket published in rec and returns a remote once
// the connection is Ready and the service reports SERVING.
func dial(ctx context.Context, rec *models.ServiceRecord, extra []grpc.DialOption, logger *slog.Logger) (*remote, error) {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		// Death is detected from connectivity changes; an idle
		// connection must not look like a lost one.
		grpc.WithIdleTimeout(0),
	}, extra...)

	cc, err := grpc.NewClient("unix://"+rec.Socket, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	if err := waitConnected(ctx, cc); err != nil {
		_ = cc.Close()
		return nil, err
	}
	if err := checkHealth(ctx, cc); err != nil {
		_ = cc.Close()
		return nil, err
	}
	return newRemote(cc, rec, logger), nil
}

// waitConnected drives cc out of Idle and waits for Ready. The first
// transient failure is returned so the caller can re-resolve the record.
func waitConnected(ctx context.Context, cc *grpc.ClientConn) error {
	for {
		state := cc.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Idle:
			cc.Connect()
		case connectivity.TransientFailure:
			return errors.New("service socket unreachable")
		case connectivity.Shutdown:
			return errors.New("client connection closed")
		}
		if !cc.WaitForStateChange(ctx, state) {
			return ctx.Err()
		}
	}
}

// checkHealth asks the standard health service about the item service.
// Services without a health endpoint are assumed to be serving.
func checkHealth(ctx context.Context, cc *grpc.ClientConn) error {
	resp, err := healthpb.NewHealthClient(cc).Check(ctx, &healthpb.HealthCheckRequest{Service: wire.ServiceName})
	if status.Code(err) == codes.Unimplemented {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check health: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("service is %s", resp.GetStatus())
	}
	return nil
}

// remote adapts a gRPC connection to link.Remote.
//
// The connection is dead once it leaves Ready. A service that stops
// gracefully sends a stopping frame on every subscription first; the
// remote is then retired instead of dead and death links do not fire.
type remote struct {
	cc     *grpc.ClientConn
	client *wire.ItemServiceClient
	record *models.ServiceRecord
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	dead       chan struct{}
	deadOnce   sync.Once
	retired    chan struct{}
	retireOnce sync.Once
	closeOnce  sync.Once

	mu   sync.Mutex
	subs map[string]*subscription
}

type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func newRemote(cc *grpc.ClientConn, rec *models.ServiceRecord, logger *slog.Logger) *remote {
	ctx, cancel := context.WithCancel(context.Background())
	r := &remote{
		cc:      cc,
		client:  wire.NewItemServiceClient(cc),
		record:  rec,
		logger:  logger.With("pid", rec.PID),
		ctx:     ctx,
		cancel:  cancel,
		dead:    make(chan struct{}),
		retired: make(chan struct{}),
		subs:    make(map[string]*subscription),
	}
	go r.watch()
	return r
}

// watch marks the remote dead when the connection leaves Ready.
func (r *remote) watch() {
	for {
		state := r.cc.GetState()
		if state != connectivity.Ready {
			r.logger.Debug("connection left ready", "state", state)
			break
		}
		if !r.cc.WaitForStateChange(r.ctx, state) {
			return
		}
	}

	// Subscriptions see the stopping frame, if any, before their stream
	// ends.
	r.waitSubscriptions()
	r.markDead()
}

func (r *remote) waitSubscriptions() {
	r.mu.Lock()
	pending := make([]chan struct{}, 0, len(r.subs))
	for _, sub := range r.subs {
		pending = append(pending, sub.done)
	}
	r.mu.Unlock()

	for _, done := range pending {
		select {
		case <-done:
		case <-r.ctx.Done():
			return
		}
	}
}

func (r *remote) markDead() {
	select {
	case <-r.retired:
		return
	default:
	}
	r.deadOnce.Do(func() {
		r.logger.Warn("service connection lost")
		close(r.dead)
	})
}

func (r *remote) retire() {
	r.retireOnce.Do(func() {
		close(r.retired)
	})
}

func (r *remote) isDead() bool {
	select {
	case <-r.dead:
		return true
	default:
		return false
	}
}

// wrap converts a gRPC error from a call made with ctx into the link
// error vocabulary. A call that got no reply before its deadline is a
// transport failure: the service is gone or hung. Application errors keep
// their gRPC status.
func (r *remote) wrap(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	code := status.Code(err)
	switch {
	case r.isDead() || r.ctx.Err() != nil || code == codes.Unavailable:
		return &link.TransportError{Op: op, Err: err}
	case code == codes.DeadlineExceeded || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &link.TransportError{Op: op, Err: err}
	case code == codes.Canceled || errors.Is(ctx.Err(), context.Canceled):
		return fmt.Errorf("%s: %w", op, context.Canceled)
	}
	if st, ok := status.FromError(err); ok {
		return &rejectedError{st: st}
	}
	return err
}

// rejectedError is an error answered by the service. It prints the status
// message and still satisfies status.FromError.
type rejectedError struct {
	st *status.Status
}

func (e *rejectedError) Error() string              { return e.st.Message() }
func (e *rejectedError) GRPCStatus() *status.Status { return e.st }

func (r *remote) AddItem(ctx context.Context, item models.Item) error {
	return r.wrap(ctx, "AddItem", r.client.AddItem(ctx, item))
}

func (r *remote) ListItems(ctx context.Context) ([]models.Item, error) {
	items, err := r.client.ListItems(ctx)
	if err != nil {
		return nil, r.wrap(ctx, "ListItems", err)
	}
	return items, nil
}

// RegisterListener opens a subscription for l and returns once the
// service has acknowledged it. Items are delivered to l from a goroutine
// owned by the remote until the subscription ends.
func (r *remote) RegisterListener(ctx context.Context, l link.Listener) error {
	id := l.ID()

	r.mu.Lock()
	_, exists := r.subs[id]
	r.mu.Unlock()
	if exists {
		return link.ErrAlreadyRegistered
	}

	// The stream outlives ctx; ctx only bounds the wait for the ack.
	subCtx, cancel := context.WithCancel(r.ctx)
	stop := context.AfterFunc(ctx, cancel)

	stream, err := r.client.Subscribe(subCtx, id)
	if err != nil {
		stop()
		cancel()
		return r.wrap(ctx, "Subscribe", err)
	}

	ev, err := stream.Recv()
	if !stop() {
		cancel()
		if err == nil {
			err = ctx.Err()
		}
		return r.wrap(ctx, "Subscribe", err)
	}
	if err != nil {
		cancel()
		if status.Code(err) == codes.AlreadyExists {
			return link.ErrAlreadyRegistered
		}
		return r.wrap(ctx, "Subscribe", err)
	}
	if ev.Kind != wire.EventRegistered {
		cancel()
		return fmt.Errorf("unexpected first subscription frame %q", ev.Kind)
	}

	sub := &subscription{cancel: cancel, done: make(chan struct{})}
	r.mu.Lock()
	if _, exists := r.subs[id]; exists {
		r.mu.Unlock()
		cancel()
		return link.ErrAlreadyRegistered
	}
	r.subs[id] = sub
	r.mu.Unlock()

	go r.pump(id, sub, stream, l)
	return nil
}

func (r *remote) pump(id string, sub *subscription, stream *wire.SubscribeClient, l link.Listener) {
	defer func() {
		r.mu.Lock()
		if r.subs[id] == sub {
			delete(r.subs, id)
		}
		r.mu.Unlock()
		close(sub.done)
	}()

	for {
		ev, err := stream.Recv()
		if err != nil {
			r.logger.Debug("subscription ended", "listener", id, "error", err)
			return
		}
		switch ev.Kind {
		case wire.EventItemAdded:
			if ev.Item != nil {
				l.OnItemAdded(*ev.Item)
			}
		case wire.EventServiceStopping:
			r.logger.Debug("service is stopping", "listener", id)
			r.retire()
		}
	}
}

// UnregisterListener asks the service to drop l's subscription and ends
// the local stream.
func (r *remote) UnregisterListener(ctx context.Context, l link.Listener) error {
	id := l.ID()
	err := r.client.Unregister(ctx, id)

	r.mu.Lock()
	sub := r.subs[id]
	r.mu.Unlock()
	if sub != nil {
		sub.cancel()
	}
	return r.wrap(ctx, "Unregister", err)
}

func (r *remote) IsAlive() bool {
	if r.isDead() || r.ctx.Err() != nil {
		return false
	}
	return r.cc.GetState() != connectivity.Shutdown
}

func (r *remote) LinkToDeath(onDied func()) (link.DeathLink, error) {
	if r.isDead() {
		return nil, link.ErrRemoteDead
	}

	dl := &deathLink{remote: r, stop: make(chan struct{})}
	go func() {
		select {
		case <-r.dead:
			if dl.fire() {
				onDied()
			}
		case <-dl.stop:
		case <-r.ctx.Done():
		}
	}()
	return dl, nil
}

// Close tears down the connection and every subscription. It does not
// count as a death.
func (r *remote) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.cancel()
		err = r.cc.Close()
	})
	return err
}

type deathLink struct {
	remote *remote
	stop   chan struct{}

	mu       sync.Mutex
	unlinked bool
	fired    bool
}

// fire reports whether the death notification should run.
func (d *deathLink) fire() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.unlinked {
		return false
	}
	d.fired = true
	return true
}

func (d *deathLink) Unlink() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.unlinked {
		d.unlinked = true
		close(d.stop)
	}
	if d.fired || d.remote.isDead() {
		return link.ErrRemoteDead
	}
	return nil
}
