package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tether-io/tether/internal/binder"
	"github.com/tether-io/tether/internal/config"
	"github.com/tether-io/tether/internal/link"
	"github.com/tether-io/tether/internal/metrics"
	"github.com/tether-io/tether/internal/models"
)

// session holds what every client command needs: resolved settings, the
// file logger and the binder.
type session struct {
	settings *models.Settings
	target   link.Target
	timeout  time.Duration
	logger   *slog.Logger
	logFile  *os.File
	binder   *binder.Binder
	registry *prometheus.Registry
	metrics  *metrics.Client
}

// resolveSettings loads settings.yaml and applies the global flags.
func resolveSettings() (*models.Settings, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if flags.service != "" {
		settings.Service.Name = flags.service
	}
	if flags.namespace != "" {
		settings.Service.Namespace = flags.namespace
	}
	if flags.noAutoStart {
		settings.Daemon.AutoStart = false
	}
	if flags.timeout > 0 {
		settings.Client.CallTimeout = flags.timeout.String()
	}
	if flags.logLevel != "" {
		settings.Client.LogLevel = flags.logLevel
	}
	return settings, nil
}

func openSession() (*session, error) {
	settings, err := resolveSettings()
	if err != nil {
		return nil, err
	}

	logFile, err := config.OpenClientLog()
	if err != nil {
		return nil, err
	}
	logger := config.NewLogger(logFile, settings.Client.LogLevel)

	var serviceArgs []string
	if settings.Daemon.RedisAddr != "" {
		serviceArgs = append(serviceArgs, "--redis-addr", settings.Daemon.RedisAddr)
	}

	registry := prometheus.NewRegistry()
	return &session{
		settings: settings,
		target: link.Target{
			Service:   settings.Service.Name,
			Namespace: settings.Service.Namespace,
		},
		timeout: settings.CallTimeout(),
		logger:  logger,
		logFile: logFile,
		binder: binder.New(binder.Options{
			AutoStart:   settings.Daemon.AutoStart,
			ServicePath: settings.Daemon.Path,
			ServiceArgs: serviceArgs,
			Logger:      logger,
		}),
		registry: registry,
		metrics:  metrics.NewClient(registry),
	}, nil
}

// supervise starts a supervisor reporting to sink.
func (s *session) supervise(sink link.StatusSink) *link.Supervisor {
	return link.New(s.binder, s.target,
		link.WithLogger(s.logger),
		link.WithObserver(s.metrics),
		link.WithCallTimeout(s.timeout),
		link.WithSink(sink),
	)
}

func (s *session) Close() {
	_ = s.logFile.Close()
}
