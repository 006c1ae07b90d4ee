package binder

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tether-io/tether/internal/config"
	"github.com/tether-io/tether/internal/daemon/server"
	"github.com/tether-io/tether/internal/daemon/store"
	"github.com/tether-io/tether/internal/link"
	"github.com/tether-io/tether/internal/models"
)

func TestWrapClassifiesCallErrors(t *testing.T) {
	live := &remote{ctx: context.Background(), dead: make(chan struct{})}
	dead := &remote{ctx: context.Background(), dead: make(chan struct{})}
	close(dead.dead)

	bg := context.Background()
	expired, cancelExpired := context.WithDeadline(bg, time.Now().Add(-time.Second))
	defer cancelExpired()
	canceled, cancel := context.WithCancel(bg)
	cancel()

	tests := []struct {
		name string
		r    *remote
		ctx  context.Context
		err  error
		want link.Outcome
	}{
		{"unavailable", live, bg, status.Error(codes.Unavailable, "connection refused"), link.TransportFailure},
		{"deadline exceeded", live, bg, status.Error(codes.DeadlineExceeded, "context deadline exceeded"), link.TransportFailure},
		{"call deadline passed", live, expired, status.Error(codes.Unknown, "stream reset"), link.TransportFailure},
		{"dead remote", dead, bg, status.Error(codes.InvalidArgument, "item name is required"), link.TransportFailure},
		{"canceled", live, bg, status.Error(codes.Canceled, "context canceled"), link.Canceled},
		{"caller canceled", live, canceled, status.Error(codes.Unknown, "stream reset"), link.Canceled},
		{"invalid argument", live, bg, status.Error(codes.InvalidArgument, "item name is required"), link.Rejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.r.wrap(tt.ctx, "AddItem", tt.err)
			if outcome := link.Classify(got); outcome != tt.want {
				t.Errorf("Classify(wrap(%v)) = %v, want %v", tt.err, outcome, tt.want)
			}
		})
	}
}

func TestWrapKeepsStatus(t *testing.T) {
	r := &remote{ctx: context.Background(), dead: make(chan struct{})}
	err := r.wrap(context.Background(), "AddItem", status.Error(codes.InvalidArgument, "item name is required"))

	if got := status.Code(err); got != codes.InvalidArgument {
		t.Errorf("status.Code(%v) = %v, want %v", err, got, codes.InvalidArgument)
	}
	if got, want := link.Describe("add", err), "add failed: item name is required"; got != want {
		t.Errorf("Describe() = %q, want %q", got, want)
	}
	if r.wrap(context.Background(), "AddItem", nil) != nil {
		t.Error("wrap(nil) != nil")
	}
}

// hungStore accepts connections but never completes an add.
type hungStore struct {
	*store.Memory
}

func (hungStore) Add(ctx context.Context, _ models.Item) error {
	<-ctx.Done()
	return ctx.Err()
}

// startHungService serves the item service with a store whose adds never
// finish, and publishes its record.
func startHungService(t *testing.T) {
	t.Helper()
	if err := config.EnsureRunDir(testNamespace); err != nil {
		t.Fatalf("EnsureRunDir() error = %v", err)
	}
	socket, err := config.ServiceSocket(testNamespace, testService)
	if err != nil {
		t.Fatalf("ServiceSocket() error = %v", err)
	}
	srv, err := server.New(server.Config{
		Socket: socket,
		Store:  hungStore{store.NewMemory()},
		Logger: discardLogger(),
	})
	if err != nil {
		t.Fatalf("server.New() error = %v", err)
	}
	go func() { _ = srv.Serve() }()
	t.Cleanup(srv.Abort)

	rec := models.NewServiceRecord(testNamespace, testService, socket, os.Getpid())
	if err := config.SaveServiceRecord(rec); err != nil {
		t.Fatalf("SaveServiceRecord() error = %v", err)
	}
}

func TestHungServiceTriggersReconnect(t *testing.T) {
	setupHome(t)
	startHungService(t)

	sink := newChanSink()
	s := link.New(newTestBinder(), testTarget,
		link.WithSink(sink),
		link.WithLogger(discardLogger()),
		link.WithCallTimeout(300*time.Millisecond),
	)
	defer s.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.WaitReady(ctx); err != nil {
		t.Fatalf("WaitReady() error = %v", err)
	}
	sink.expectStatus(t, "service connected")

	start := time.Now()
	err := s.AddItem(ctx, models.NewItem("s1", 1))
	if got := link.Classify(err); got != link.TransportFailure {
		t.Fatalf("Classify(AddItem()) = %v (%v), want %v", got, err, link.TransportFailure)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("AddItem() took %v, want about the call timeout", elapsed)
	}

	sink.expectStatus(t, "service died, reconnecting")
	sink.expectStatus(t, "service connected")
	if err := s.WaitReady(ctx); err != nil {
		t.Fatalf("WaitReady() after reconnect error = %v", err)
	}
	if _, err := s.ListItems(ctx); err != nil {
		t.Errorf("ListItems() after reconnect error = %v", err)
	}
}

func TestCallerCancelDoesNotReconnect(t *testing.T) {
	setupHome(t)
	startHungService(t)

	sink := newChanSink()
	s := link.New(newTestBinder(), testTarget,
		link.WithSink(sink),
		link.WithLogger(discardLogger()),
		link.WithCallTimeout(5*time.Second),
	)
	defer s.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.WaitReady(ctx); err != nil {
		t.Fatalf("WaitReady() error = %v", err)
	}

	callCtx, cancelCall := context.WithCancel(ctx)
	time.AfterFunc(100*time.Millisecond, cancelCall)
	err := s.AddItem(callCtx, models.NewItem("s1", 1))
	if got := link.Classify(err); got != link.Canceled {
		t.Fatalf("Classify(AddItem()) = %v (%v), want %v", got, err, link.Canceled)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("AddItem() = %v, want context.Canceled", err)
	}

	time.Sleep(200 * time.Millisecond)
	if got := s.State(); got != link.Ready {
		t.Errorf("State() after caller cancel = %v, want %v", got, link.Ready)
	}
}
