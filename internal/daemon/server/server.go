// Package server implements the gRPC server of the reference item service.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/improbable-eng/grpc-web/go/grpcweb"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/tether-io/tether/internal/daemon/store"
	"github.com/tether-io/tether/internal/metrics"
	"github.com/tether-io/tether/internal/wire"
)

// Config configures a Server.
type Config struct {
	// Socket is the unix socket path to listen on. A stale socket file is
	// replaced.
	Socket string

	// WebAddr, when set, serves grpc-web and /metrics over TCP.
	WebAddr string

	Store    store.Store
	Registry *prometheus.Registry
	Logger   *slog.Logger
}

// Server is the item service's gRPC server.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	listener   net.Listener
	socket     string
	hub        *Hub
	logger     *slog.Logger

	web         *http.Server
	webListener net.Listener
}

// New creates a server listening on cfg.Socket.
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("server requires a store")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	logger := cfg.Logger.With("component", "server")

	if err := os.Remove(cfg.Socket); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to remove stale socket: %w", err)
	}
	listener, err := (&net.ListenConfig{}).Listen(context.TODO(), "unix", cfg.Socket)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	m := metrics.NewDaemon(cfg.Registry)
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(m.UnaryInterceptor()))
	hub := NewHub(logger, m)

	srv := &Server{
		grpcServer: grpcServer,
		health:     health.NewServer(),
		listener:   listener,
		socket:     cfg.Socket,
		hub:        hub,
		logger:     logger,
	}

	// Register services
	wire.RegisterItemServiceServer(grpcServer, &itemService{store: cfg.Store, hub: hub, metrics: m, logger: logger})
	healthpb.RegisterHealthServer(grpcServer, srv.health)
	srv.health.SetServingStatus(wire.ServiceName, healthpb.HealthCheckResponse_SERVING)

	if cfg.WebAddr != "" {
		if err := srv.listenWeb(cfg.WebAddr, cfg.Registry); err != nil {
			_ = listener.Close()
			return nil, err
		}
	}

	return srv, nil
}

// listenWeb exposes the gRPC services to browsers through grpc-web, next
// to the Prometheus endpoint.
func (s *Server) listenWeb(addr string, reg *prometheus.Registry) error {
	l, err := (&net.ListenConfig{}).Listen(context.TODO(), "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	wrapped := grpcweb.WrapServer(s.grpcServer,
		grpcweb.WithOriginFunc(func(string) bool { return true }),
	)
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	mux.Handle("/", wrapped)

	s.webListener = l
	s.web = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	return nil
}

// Socket returns the unix socket path.
func (s *Server) Socket() string {
	return s.socket
}

// WebAddr returns the address of the grpc-web listener, or "".
func (s *Server) WebAddr() string {
	if s.webListener == nil {
		return ""
	}
	return s.webListener.Addr().String()
}

// Subscribers returns the number of open push subscriptions.
func (s *Server) Subscribers() int {
	return s.hub.Count()
}

// Serve starts serving requests. This blocks until Stop or Abort is called.
func (s *Server) Serve() error {
	if s.web != nil {
		go func() {
			if err := s.web.Serve(s.webListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("web listener failed", "error", err)
			}
		}()
	}
	return s.grpcServer.Serve(s.listener)
}

// Stop gracefully stops the server. Subscribers are told the service is
// stopping before their streams end.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.hub.Close()
	s.grpcServer.GracefulStop()
	s.stopWeb()
	s.removeSocket()
}

// Abort stops the server without notice, as if the process had died.
func (s *Server) Abort() {
	s.grpcServer.Stop()
	s.stopWeb()
	s.removeSocket()
}

func (s *Server) stopWeb() {
	if s.web == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.web.Shutdown(ctx); err != nil {
		s.logger.Warn("web listener shutdown", "error", err)
	}
}

func (s *Server) removeSocket() {
	if err := os.Remove(s.socket); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("failed to remove socket", "error", err)
	}
}
