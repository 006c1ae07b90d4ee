// Package binder implements link.Binder over gRPC on unix sockets.
//
// A bind request resolves the service through the registry under
// ~/.tether/services, optionally launching the service binary first,
// dials the published socket and reports the connected remote. A bind
// that cannot complete keeps retrying until it is unbound.
package binder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"google.golang.org/grpc"

	"github.com/tether-io/tether/internal/config"
	"github.com/tether-io/tether/internal/link"
	"github.com/tether-io/tether/internal/models"
	"github.com/tether-io/tether/internal/watcher"
)

// DefaultPollInterval is how often the registry is re-read when no watch
// event arrives.
const DefaultPollInterval = time.Second

// Options configures a Binder.
type Options struct {
	// AutoStart launches the service binary when no live record exists.
	AutoStart bool

	// ServicePath overrides the lookup of the service binary.
	ServicePath string

	// ServiceArgs are appended to the service command line on auto-start.
	ServiceArgs []string

	// DialOptions are appended to the binder's own dial options.
	DialOptions []grpc.DialOption

	// PollInterval bounds how long a pending bind waits between registry
	// reads. Zero means DefaultPollInterval.
	PollInterval time.Duration

	Logger *slog.Logger
}

// Binder resolves and dials item services.
type Binder struct {
	opts   Options
	logger *slog.Logger

	mu    sync.Mutex
	binds map[link.Connection]*attempt
}

// attempt is one outstanding bind.
type attempt struct {
	cancel context.CancelFunc

	mu      sync.Mutex
	remote  *remote
	unbound bool
}

// New creates a Binder.
func New(opts Options) *Binder {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Binder{
		opts:   opts,
		logger: opts.Logger.With("component", "binder"),
		binds:  make(map[link.Connection]*attempt),
	}
}

// Bind starts connecting conn to target and returns immediately.
func (b *Binder) Bind(target link.Target, conn link.Connection) error {
	if target.Service == "" || target.Namespace == "" {
		return fmt.Errorf("invalid target %q", target.String())
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.binds[conn]; ok {
		return errors.New("connection is already bound")
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &attempt{cancel: cancel}
	b.binds[conn] = a

	go b.establish(ctx, target, conn, a)
	return nil
}

// Unbind abandons a pending bind or releases an established one. No
// callback is delivered for conn afterwards.
func (b *Binder) Unbind(conn link.Connection) {
	b.mu.Lock()
	a, ok := b.binds[conn]
	delete(b.binds, conn)
	b.mu.Unlock()
	if !ok {
		return
	}

	a.cancel()
	a.mu.Lock()
	a.unbound = true
	r := a.remote
	a.remote = nil
	a.mu.Unlock()
	if r != nil {
		_ = r.Close()
	}
}

func (b *Binder) establish(ctx context.Context, target link.Target, conn link.Connection, a *attempt) {
	logger := b.logger.With("target", target.String())

	r, err := b.connect(ctx, target, logger)
	if err != nil {
		logger.Debug("bind abandoned", "error", err)
		return
	}

	a.mu.Lock()
	if a.unbound {
		a.mu.Unlock()
		_ = r.Close()
		return
	}
	a.remote = r
	a.mu.Unlock()

	logger.Info("bound to service", "socket", r.record.Socket, "pid", r.record.PID)
	conn.OnConnected(r)

	select {
	case <-r.retired:
		logger.Info("service stopped")
		if ctx.Err() == nil {
			conn.OnDisconnected()
		}
	case <-r.dead:
	case <-ctx.Done():
	}
}

// connect loops until a healthy remote is dialed or ctx is cancelled.
func (b *Binder) connect(ctx context.Context, target link.Target, logger *slog.Logger) (*remote, error) {
	var events <-chan watcher.Event
	w, err := watcher.New(target.Namespace, b.opts.Logger)
	if err != nil {
		logger.Warn("registry watch unavailable, polling", "error", err)
	} else if err := w.Start(); err != nil {
		logger.Warn("registry watch unavailable, polling", "error", err)
	} else {
		defer w.Stop()
		events = w.Events()
	}

	ticker := time.NewTicker(b.opts.PollInterval)
	defer ticker.Stop()

	started := false
	for {
		rec, err := b.lookup(target, logger)
		if err != nil {
			logger.Warn("failed to read service record", "error", err)
		}

		switch {
		case rec != nil:
			r, err := dial(ctx, rec, b.opts.DialOptions, logger)
			if err == nil {
				return r, nil
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Debug("dial failed", "socket", rec.Socket, "error", err)
		case b.opts.AutoStart && !started:
			started = true
			pid, err := StartService(b.opts.ServicePath, target.Namespace, target.Service, b.opts.ServiceArgs...)
			if err != nil {
				logger.Warn("auto-start failed", "error", err)
			} else {
				logger.Info("started service", "pid", pid)
			}
		}

		if err := waitForChange(ctx, events, ticker.C, target.Service); err != nil {
			return nil, err
		}
	}
}

// lookup returns the live record for target, or nil.
func (b *Binder) lookup(target link.Target, logger *slog.Logger) (*models.ServiceRecord, error) {
	running, rec, err := config.IsServiceRunning(target.Namespace, target.Service)
	if err != nil {
		return nil, err
	}
	if !running {
		if rec != nil {
			logger.Debug("removed stale service record", "pid", rec.PID)
		}
		return nil, nil
	}
	return rec, nil
}

// waitForChange blocks until the target's record is written, the poll
// interval elapses or ctx ends.
func waitForChange(ctx context.Context, events <-chan watcher.Event, tick <-chan time.Time, service string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
			return nil
		case ev := <-events:
			if ev.Service == service && ev.Type == watcher.EventRecordWritten {
				return nil
			}
		}
	}
}
