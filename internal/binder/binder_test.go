package binder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"

	"github.com/tether-io/tether/internal/config"
	"github.com/tether-io/tether/internal/daemon"
	"github.com/tether-io/tether/internal/link"
	"github.com/tether-io/tether/internal/models"
)

const (
	testNamespace = "test"
	testService   = "items"
	waitTimeout   = 5 * time.Second
)

var testTarget = link.Target{Service: testService, Namespace: testNamespace}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupHome(t *testing.T) {
	t.Helper()
	// Keep socket paths short.
	dir, err := os.MkdirTemp("", "tether")
	if err != nil {
		t.Fatalf("MkdirTemp() error = %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	t.Setenv(config.HomeEnv, dir)
}

func startDaemon(t *testing.T) *daemon.Daemon {
	t.Helper()
	d, err := daemon.New(daemon.Options{Namespace: testNamespace, Service: testService, Logger: discardLogger()})
	if err != nil {
		t.Fatalf("daemon.New() error = %v", err)
	}
	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	go func() { _ = d.Serve() }()
	t.Cleanup(d.Abort)

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	if _, err := WaitForService(ctx, testNamespace, testService); err != nil {
		t.Fatalf("WaitForService() error = %v", err)
	}
	return d
}

func newTestBinder() *Binder {
	return New(Options{
		PollInterval: 50 * time.Millisecond,
		Logger:       discardLogger(),
		DialOptions: []grpc.DialOption{
			grpc.WithConnectParams(grpc.ConnectParams{
				Backoff:           backoff.Config{BaseDelay: 50 * time.Millisecond, Multiplier: 1.6, Jitter: 0.2, MaxDelay: 200 * time.Millisecond},
				MinConnectTimeout: time.Second,
			}),
		},
	})
}

type chanSink struct {
	statuses chan string
	items    chan models.Item
}

func newChanSink() *chanSink {
	return &chanSink{statuses: make(chan string, 64), items: make(chan models.Item, 64)}
}

func (s *chanSink) SetStatus(text string)      { s.statuses <- text }
func (s *chanSink) ItemAdded(item models.Item) { s.items <- item }

func (s *chanSink) expectItem(t *testing.T, want models.Item) {
	t.Helper()
	select {
	case got := <-s.items:
		if got != want {
			t.Errorf("pushed item = %v, want %v", got, want)
		}
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for pushed item %v", want)
	}
}

func (s *chanSink) expectStatus(t *testing.T, want string) {
	t.Helper()
	timeout := time.After(waitTimeout)
	for {
		select {
		case got := <-s.statuses:
			if got == want {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for status %q", want)
		}
	}
}

type chanConn struct {
	connected    chan link.Remote
	disconnected chan struct{}
}

func newChanConn() *chanConn {
	return &chanConn{connected: make(chan link.Remote, 1), disconnected: make(chan struct{}, 1)}
}

func (c *chanConn) OnConnected(r link.Remote) { c.connected <- r }
func (c *chanConn) OnDisconnected()           { c.disconnected <- struct{}{} }

func waitForState(t *testing.T, s *link.Supervisor, cond func(link.State) bool, what string) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		if cond(s.State()) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("supervisor never reached %s (state %v)", what, s.State())
}

func TestBindRejectsInvalidTarget(t *testing.T) {
	b := newTestBinder()
	if err := b.Bind(link.Target{Service: "items"}, newChanConn()); err == nil {
		t.Error("Bind() with empty namespace succeeded, want error")
	}
}

func TestBindTwiceRejected(t *testing.T) {
	setupHome(t)
	b := newTestBinder()
	conn := newChanConn()

	if err := b.Bind(testTarget, conn); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	defer b.Unbind(conn)
	if err := b.Bind(testTarget, conn); err == nil {
		t.Error("second Bind() succeeded, want error")
	}
}

func TestUnbindAbandonsPendingBind(t *testing.T) {
	setupHome(t)
	b := newTestBinder()
	conn := newChanConn()

	if err := b.Bind(testTarget, conn); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	b.Unbind(conn)

	// A service appearing later must not complete the abandoned bind.
	startDaemon(t)
	select {
	case r := <-conn.connected:
		r.Close()
		t.Fatal("abandoned bind delivered a remote")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestBindWaitsForService(t *testing.T) {
	setupHome(t)
	b := newTestBinder()
	conn := newChanConn()

	if err := b.Bind(testTarget, conn); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	defer b.Unbind(conn)

	time.Sleep(100 * time.Millisecond)
	startDaemon(t)

	select {
	case r := <-conn.connected:
		if !r.IsAlive() {
			t.Error("IsAlive() = false for a fresh remote")
		}
	case <-time.After(waitTimeout):
		t.Fatal("bind did not complete after the service started")
	}
}

func TestRemoteDeathLink(t *testing.T) {
	setupHome(t)
	d := startDaemon(t)
	b := newTestBinder()
	conn := newChanConn()
	if err := b.Bind(testTarget, conn); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	defer b.Unbind(conn)

	var r link.Remote
	select {
	case r = <-conn.connected:
	case <-time.After(waitTimeout):
		t.Fatal("bind did not complete")
	}

	died := make(chan struct{})
	dl, err := r.LinkToDeath(func() { close(died) })
	if err != nil {
		t.Fatalf("LinkToDeath() error = %v", err)
	}

	d.Abort()

	select {
	case <-died:
	case <-time.After(waitTimeout):
		t.Fatal("death notification not delivered")
	}
	if r.IsAlive() {
		t.Error("IsAlive() = true after death")
	}
	if err := dl.Unlink(); !errors.Is(err, link.ErrRemoteDead) {
		t.Errorf("Unlink() after death = %v, want %v", err, link.ErrRemoteDead)
	}
	if err := dl.Unlink(); !errors.Is(err, link.ErrRemoteDead) {
		t.Errorf("second Unlink() = %v, want %v", err, link.ErrRemoteDead)
	}
	if _, err := r.LinkToDeath(func() {}); !errors.Is(err, link.ErrRemoteDead) {
		t.Errorf("LinkToDeath() on dead remote = %v, want %v", err, link.ErrRemoteDead)
	}
	err = r.AddItem(context.Background(), models.NewItem("s1", 1))
	if !link.IsTransportError(err) {
		t.Errorf("AddItem() on dead remote = %v, want transport error", err)
	}
}

// TestSupervisorRecoversFromCrash exercises the full client stack against
// a real service: connect, push delivery, crash, automatic reconnect with
// re-registration, and graceful disconnect.
func TestSupervisorRecoversFromCrash(t *testing.T) {
	setupHome(t)
	first := startDaemon(t)

	sink := newChanSink()
	s := link.New(newTestBinder(), testTarget,
		link.WithSink(sink),
		link.WithLogger(discardLogger()),
		link.WithCallTimeout(2*time.Second),
	)
	defer s.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.WaitReady(ctx); err != nil {
		t.Fatalf("WaitReady() error = %v", err)
	}
	sink.expectStatus(t, "service connected")

	item := models.NewItem("s1", 5)
	if err := s.AddItem(ctx, item); err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}
	sink.expectItem(t, item)

	err := s.AddItem(ctx, models.NewItem("", 1))
	if got := link.Classify(err); got != link.Rejected {
		t.Errorf("Classify(AddItem(invalid)) = %v, want %v", got, link.Rejected)
	}

	// Crash: the supervisor rebinds on its own.
	first.Abort()
	waitForState(t, s, func(st link.State) bool { return st != link.Ready }, "not ready")
	sink.expectStatus(t, "service died, reconnecting")
	if err := s.EnsureConnected(); !errors.Is(err, link.ErrNotReady) {
		t.Errorf("EnsureConnected() after crash = %v, want %v", err, link.ErrNotReady)
	}

	second := startDaemon(t)
	if err := s.WaitReady(ctx); err != nil {
		t.Fatalf("WaitReady() after restart error = %v", err)
	}

	// The listener was registered again on the new service.
	item2 := models.NewItem("s2", 6)
	if err := s.AddItem(ctx, item2); err != nil {
		t.Fatalf("AddItem() after restart error = %v", err)
	}
	sink.expectItem(t, item2)

	items, err := s.ListItems(ctx)
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	if len(items) != 1 || items[0] != item2 {
		t.Errorf("ListItems() = %v, want [%v]", items, item2)
	}

	// Graceful stop: disconnected, no reconnect.
	second.Stop()
	sink.expectStatus(t, "service disconnected")
	waitForState(t, s, func(st link.State) bool { return st == link.Disconnected }, "disconnected")
	time.Sleep(200 * time.Millisecond)
	if got := s.State(); got != link.Disconnected {
		t.Errorf("State() after graceful stop = %v, want %v", got, link.Disconnected)
	}
}

func TestFindServiceBinary(t *testing.T) {
	dir := t.TempDir()
	binary := filepath.Join(dir, ServiceBinary)
	if err := os.WriteFile(binary, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, err := FindServiceBinary(binary)
	if err != nil || got != binary {
		t.Errorf("FindServiceBinary(%q) = %q, %v; want %q", binary, got, err, binary)
	}

	missing := filepath.Join(dir, "missing")
	if _, err := FindServiceBinary(missing); err == nil {
		t.Errorf("FindServiceBinary(%q) succeeded, want error", missing)
	}
}
