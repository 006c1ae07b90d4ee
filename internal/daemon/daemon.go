// Package daemon runs the reference item service and enforces
// single-instance execution per service name.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tether-io/tether/internal/config"
	"github.com/tether-io/tether/internal/daemon/server"
	"github.com/tether-io/tether/internal/daemon/store"
	"github.com/tether-io/tether/internal/models"
)

// Options configures a Daemon.
type Options struct {
	Namespace string
	Service   string

	// Socket overrides ~/.tether/run/<namespace>/<service>.sock.
	Socket string

	// WebAddr enables the grpc-web and metrics listener.
	WebAddr string

	Store    store.Options
	Registry *prometheus.Registry
	Logger   *slog.Logger
}

// Daemon owns the server, the item store, the instance lock and the
// published service record.
type Daemon struct {
	opts     Options
	logger   *slog.Logger
	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running bool
	server  *server.Server
	store   store.Store
	record  *models.ServiceRecord
}

// New constructs a daemon. Nothing is acquired until Start.
func New(opts Options) (*Daemon, error) {
	if opts.Namespace == "" || opts.Service == "" {
		return nil, errors.New("daemon requires a namespace and a service name")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Socket == "" {
		socket, err := config.ServiceSocket(opts.Namespace, opts.Service)
		if err != nil {
			return nil, err
		}
		opts.Socket = socket
	}
	if opts.Store.RedisKey == "" {
		opts.Store.RedisKey = store.RedisKey(opts.Namespace, opts.Service)
	}

	lockPath, err := config.ServiceLockFile(opts.Namespace, opts.Service)
	if err != nil {
		return nil, err
	}
	return &Daemon{
		opts:     opts,
		logger:   opts.Logger.With("component", "daemon", "service", opts.Namespace+"/"+opts.Service),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock, opens the store, listens on the
// socket and publishes the service record. Clients may connect as soon
// as Start returns and Serve is running.
func (d *Daemon) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return errors.New("daemon already running")
	}

	if err := config.EnsureRunDir(d.opts.Namespace); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another instance of %s/%s is already running", d.opts.Namespace, d.opts.Service)
	}

	st, err := store.New(d.opts.Store, d.logger)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("open store: %w", err)
	}

	srv, err := server.New(server.Config{
		Socket:   d.opts.Socket,
		WebAddr:  d.opts.WebAddr,
		Store:    st,
		Registry: d.opts.Registry,
		Logger:   d.opts.Logger,
	})
	if err != nil {
		_ = st.Close()
		_ = d.lock.Unlock()
		return fmt.Errorf("create server: %w", err)
	}

	rec := models.NewServiceRecord(d.opts.Namespace, d.opts.Service, srv.Socket(), os.Getpid())
	rec.WebAddr = srv.WebAddr()

	d.server = srv
	d.store = st
	d.record = rec
	d.running = true
	d.logger.Info("daemon started", "socket", rec.Socket, "web", rec.WebAddr, "lock", d.lockPath)
	return nil
}

// Serve publishes the service record and serves until Stop or Abort.
func (d *Daemon) Serve() error {
	d.mu.Lock()
	srv, rec := d.server, d.record
	d.mu.Unlock()
	if srv == nil {
		return errors.New("daemon not started")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve()
	}()

	if err := config.SaveServiceRecord(rec); err != nil {
		srv.Abort()
		<-errCh
		return fmt.Errorf("failed to write service record: %w", err)
	}
	return <-errCh
}

// Run starts the daemon and serves until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- d.Serve()
	}()

	select {
	case <-ctx.Done():
		d.logger.Info("shutting down")
		d.Stop()
		return <-errCh
	case err := <-errCh:
		d.Stop()
		return err
	}
}

// Record returns the published service record, or nil before Start.
func (d *Daemon) Record() *models.ServiceRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.record
}

// Server returns the underlying server, or nil before Start.
func (d *Daemon) Server() *server.Server {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.server
}

// Stop withdraws the service record, stops the server gracefully and
// releases the store and the lock.
func (d *Daemon) Stop() {
	d.shutdown(true)
}

// Abort stops serving without notifying subscribers and leaves the
// service record behind, as a crash would.
func (d *Daemon) Abort() {
	d.shutdown(false)
}

func (d *Daemon) shutdown(graceful bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return
	}
	d.running = false

	if graceful {
		if err := config.RemoveServiceRecord(d.opts.Namespace, d.opts.Service); err != nil {
			d.logger.Warn("failed to remove service record", "error", err)
		}
		d.server.Stop()
	} else {
		d.server.Abort()
	}
	if err := d.store.Close(); err != nil {
		d.logger.Warn("failed to close store", "error", err)
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release lock", "error", err)
	}
	d.logger.Info("daemon stopped", "graceful", graceful)
}
