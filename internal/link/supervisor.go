package link

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tether-io/tether/internal/models"
)

// DefaultCallTimeout bounds typed calls issued by the supervisor when the
// caller's context has no earlier deadline.
const DefaultCallTimeout = 5 * time.Second

// eventQueueSize bounds callbacks waiting for the control goroutine.
const eventQueueSize = 32

// waitReadyRetry paces the new connect attempts WaitReady makes after an
// attempt ends Disconnected.
const waitReadyRetry = 250 * time.Millisecond

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		s.logger = logger
	}
}

// WithObserver installs lifecycle hooks, e.g. metrics.
func WithObserver(o Observer) Option {
	return func(s *Supervisor) {
		s.observer = o
	}
}

// WithCallTimeout sets the per-call timeout for typed calls.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.callTimeout = d
		}
	}
}

// WithSink sets the StatusSink that receives status lines and push events.
func WithSink(sink StatusSink) Option {
	return func(s *Supervisor) {
		s.sink = sink
	}
}

// Supervisor owns the connection to one service target.
type Supervisor struct {
	binder      Binder
	target      Target
	logger      *slog.Logger
	observer    Observer
	sink        StatusSink
	callTimeout time.Duration

	dispatch *dispatcher
	listener *notifier

	// Written only by the control goroutine; read by callers.
	mu      sync.RWMutex
	state   State
	remote  Remote
	changed chan struct{} // closed and replaced on every transition

	// Owned by the control goroutine.
	binding    *binding
	death      DeathLink
	registered bool
	closed     bool

	kick         chan struct{}
	events       chan any
	stopped      chan struct{}
	shutdownOnce sync.Once

	// halted is set once the control goroutine no longer reads events.
	postMu sync.RWMutex
	halted bool
}

// New creates a Supervisor in the Disconnected state and starts its
// control goroutine. Nothing is bound until Connect, EnsureConnected or a
// caller-facing operation is invoked.
func New(binder Binder, target Target, opts ...Option) *Supervisor {
	s := &Supervisor{
		binder:      binder,
		target:      target,
		logger:      slog.Default(),
		observer:    nopObserver{},
		callTimeout: DefaultCallTimeout,
		state:       Disconnected,
		changed:     make(chan struct{}),
		kick:        make(chan struct{}, 1),
		events:      make(chan any, eventQueueSize),
		stopped:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "link", "target", target.String())
	s.dispatch = newDispatcher(s.sink)
	s.listener = newNotifier(s.dispatch, s.observer, s.logger)

	go s.run()
	return s
}

// Target returns the service target.
func (s *Supervisor) Target() Target {
	return s.target
}

// ListenerID returns the ID the supervisor subscribes with.
func (s *Supervisor) ListenerID() string {
	return s.listener.ID()
}

// State returns the current connection state.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Connect requests a connection. It never blocks: if the supervisor is
// Disconnected the control goroutine issues one bind request, otherwise
// the call has no effect. Requests made while one is pending coalesce.
func (s *Supervisor) Connect() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// EnsureConnected returns nil when Ready. Otherwise it starts a connect
// attempt and returns ErrNotReady on the same invocation.
func (s *Supervisor) EnsureConnected() error {
	_, err := s.acquire()
	return err
}

// WaitReady connects and blocks until the supervisor is Ready, ctx ends or
// the supervisor is shut down. It is the only blocking way to connect: an
// attempt that ends Disconnected, e.g. a rejected bind, is retried every
// waitReadyRetry.
func (s *Supervisor) WaitReady(ctx context.Context) error {
	kicked := false
	for {
		s.mu.RLock()
		state, changed := s.state, s.changed
		s.mu.RUnlock()
		if state == Ready {
			return nil
		}
		if state == Disconnected {
			if kicked {
				select {
				case <-time.After(waitReadyRetry):
				case <-ctx.Done():
					return ctx.Err()
				case <-s.stopped:
					return ErrShutdown
				}
			}
			s.Connect()
			kicked = true
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopped:
			return ErrShutdown
		}
	}
}

// AddItem stores an item through the current remote.
func (s *Supervisor) AddItem(ctx context.Context, item models.Item) error {
	r, err := s.acquire()
	if err != nil {
		return err
	}
	ctx, cancel := s.callContext(ctx)
	defer cancel()
	if err := r.AddItem(ctx, item); err != nil {
		return s.callFailed(r, err)
	}
	return nil
}

// ListItems fetches every item through the current remote.
func (s *Supervisor) ListItems(ctx context.Context) ([]models.Item, error) {
	r, err := s.acquire()
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.callContext(ctx)
	defer cancel()
	items, err := r.ListItems(ctx)
	if err != nil {
		return nil, s.callFailed(r, err)
	}
	return items, nil
}

// Shutdown tears the connection down from any state: best-effort
// unregister, unlink, unbind, Disconnected. It waits for the teardown and
// for pending sink deliveries, so it must not be called from a StatusSink.
// Later calls are no-ops.
func (s *Supervisor) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.events <- shutdownEvent{}
	})
	<-s.stopped
	s.dispatch.close()
}

func (s *Supervisor) acquire() (Remote, error) {
	s.mu.RLock()
	state, r := s.state, s.remote
	s.mu.RUnlock()
	if state == Ready && r != nil {
		return r, nil
	}
	s.Connect()
	return nil, ErrNotReady
}

func (s *Supervisor) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < s.callTimeout {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.callTimeout)
}

// callFailed reports transport failures to the control goroutine, which
// treats them as a death of r.
func (s *Supervisor) callFailed(r Remote, err error) error {
	if IsTransportError(err) {
		s.post(transportEvent{remote: r, err: err})
	}
	return err
}

// ============================================================================
// Control goroutine
// ============================================================================

type connectedEvent struct {
	b      *binding
	remote Remote
}

type disconnectedEvent struct {
	b *binding
}

type diedEvent struct {
	remote Remote
}

type transportEvent struct {
	remote Remote
	err    error
}

type shutdownEvent struct{}

// binding is the Connection handed to the binder for one bind request.
// Callbacks for a binding other than the current one are stale.
type binding struct {
	s *Supervisor
}

func (b *binding) OnConnected(r Remote) {
	if !b.s.post(connectedEvent{b: b, remote: r}) {
		_ = r.Close()
	}
}

func (b *binding) OnDisconnected() {
	b.s.post(disconnectedEvent{b: b})
}

// post marshals an event onto the control goroutine. Reports false if the
// supervisor has stopped.
func (s *Supervisor) post(ev any) bool {
	s.postMu.RLock()
	defer s.postMu.RUnlock()
	if s.halted {
		return false
	}
	select {
	case <-s.stopped:
		return false
	default:
	}
	select {
	case s.events <- ev:
		return true
	case <-s.stopped:
		return false
	}
}

func (s *Supervisor) run() {
	for {
		select {
		case <-s.kick:
			s.handleConnect()
		case ev := <-s.events:
			switch ev := ev.(type) {
			case connectedEvent:
				s.handleConnected(ev)
			case disconnectedEvent:
				s.handleDisconnected(ev)
			case diedEvent:
				s.handleDied(ev.remote, "remote died")
			case transportEvent:
				s.handleTransportFailure(ev)
			case shutdownEvent:
				s.handleShutdown()
				s.halt()
				return
			}
		}
	}
}

func (s *Supervisor) setState(to State) {
	s.mu.Lock()
	from := s.state
	if from == to {
		s.mu.Unlock()
		return
	}
	if !ValidTransition(from, to) {
		s.mu.Unlock()
		s.logger.Error("refusing invalid state transition", "from", from, "to", to)
		return
	}
	s.state = to
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()

	s.logger.Debug("state transition", "from", from, "to", to)
	s.observer.Transition(from, to)
}

func (s *Supervisor) setRemote(r Remote) {
	s.mu.Lock()
	s.remote = r
	s.mu.Unlock()
}

func (s *Supervisor) currentRemote() Remote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remote
}

func (s *Supervisor) handleConnect() {
	if s.closed || s.State() != Disconnected {
		return
	}

	b := &binding{s: s}
	s.binding = b
	s.setState(Connecting)

	if err := s.binder.Bind(s.target, b); err != nil {
		s.logger.Warn("bind request rejected", "error", err)
		s.binding = nil
		s.setState(Disconnected)
		s.dispatch.status("bind failed: " + err.Error())
		return
	}
	s.logger.Debug("bind requested")
}

// handleConnected links to death and registers the listener before
// entering Ready, so a Ready supervisor always has its subscription in
// place.
func (s *Supervisor) handleConnected(ev connectedEvent) {
	if ev.b != s.binding || s.State() != Connecting {
		s.logger.Debug("discarding stale connection")
		_ = ev.remote.Close()
		return
	}
	r := ev.remote

	death, err := r.LinkToDeath(func() {
		s.post(diedEvent{remote: r})
	})
	if err != nil {
		s.logger.Warn("remote died before it could be watched", "error", err)
		s.dropConnection(r, "service died while connecting, reconnecting")
		return
	}
	s.death = death

	if err := s.register(r); err != nil && IsTransportError(err) {
		s.dropConnection(r, "service died while connecting, reconnecting")
		return
	}

	s.setRemote(r)
	s.setState(Ready)
	s.logger.Info("service connected", "listener_registered", s.registered)
	s.dispatch.status("service connected")
}

// register subscribes the standing listener. A duplicate subscription is
// routine recovery, not an error. Other failures are logged; the
// connection stays usable without push notifications.
func (s *Supervisor) register(r Remote) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.callTimeout)
	defer cancel()

	err := r.RegisterListener(ctx, s.listener)
	switch {
	case err == nil:
		s.registered = true
	case errors.Is(err, ErrAlreadyRegistered):
		s.logger.Debug("listener already registered", "listener", s.listener.ID())
		s.registered = true
	default:
		s.logger.Warn("listener registration failed", "listener", s.listener.ID(), "error", err)
		s.registered = false
	}
	return err
}

func (s *Supervisor) handleDisconnected(ev disconnectedEvent) {
	if ev.b != s.binding {
		s.logger.Debug("ignoring disconnect for stale binding")
		return
	}
	s.unlink()
	s.registered = false
	s.setRemote(nil)
	s.binding = nil
	s.binder.Unbind(ev.b)
	s.setState(Disconnected)
	s.logger.Info("service disconnected")
	s.dispatch.status("service disconnected")
}

func (s *Supervisor) handleTransportFailure(ev transportEvent) {
	if ev.remote != s.currentRemote() {
		return
	}
	s.logger.Warn("transport failure, treating remote as dead", "error", ev.err)
	s.handleDied(ev.remote, "transport failure")
}

func (s *Supervisor) handleDied(r Remote, reason string) {
	if r == nil || r != s.currentRemote() {
		s.logger.Debug("ignoring death of stale remote")
		return
	}
	s.logger.Warn("service connection lost", "reason", reason)
	s.dropConnection(r, "service died, reconnecting")
}

// dropConnection discards r and its binding and binds again at once. The
// remote is cleared before the new bind request is issued.
func (s *Supervisor) dropConnection(r Remote, status string) {
	s.unlink()
	s.registered = false
	s.setRemote(nil)
	if s.binding != nil {
		s.binder.Unbind(s.binding)
		s.binding = nil
	}
	_ = r.Close()
	s.setState(Disconnected)
	s.dispatch.status(status)

	s.observer.Reconnect()
	s.handleConnect()
}

func (s *Supervisor) unlink() {
	if s.death == nil {
		return
	}
	if err := s.death.Unlink(); err != nil {
		s.logger.Debug("unlink after death", "error", err)
	}
	s.death = nil
}

func (s *Supervisor) handleShutdown() {
	s.closed = true

	if r := s.currentRemote(); r != nil && s.registered {
		ctx, cancel := context.WithTimeout(context.Background(), s.callTimeout)
		if err := r.UnregisterListener(ctx, s.listener); err != nil {
			s.logger.Debug("unregister on shutdown failed", "error", err)
		}
		cancel()
	}
	s.registered = false
	s.unlink()
	s.setRemote(nil)
	if s.binding != nil {
		s.binder.Unbind(s.binding)
		s.binding = nil
	}
	if s.State() != Disconnected {
		s.setState(Disconnected)
		s.dispatch.status("service disconnected")
	}
	s.logger.Debug("supervisor shut down")
}

// halt stops the control goroutine from accepting events. Remotes whose
// connection was reported after shutdown are released.
func (s *Supervisor) halt() {
	close(s.stopped)

	// Wait out posters that raced with close(s.stopped).
	s.postMu.Lock()
	s.halted = true
	s.postMu.Unlock()

	for {
		select {
		case ev := <-s.events:
			if ev, ok := ev.(connectedEvent); ok {
				_ = ev.remote.Close()
			}
		default:
			return
		}
	}
}
