// Package cmd implements the tetherd command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/tether-io/tether/internal/config"
	"github.com/tether-io/tether/internal/daemon"
	"github.com/tether-io/tether/internal/daemon/store"
	"github.com/tether-io/tether/internal/models"
)

var opts struct {
	namespace     string
	service       string
	socket        string
	webAddr       string
	redisAddr     string
	redisPassword string
	redisDB       int
	logLevel      string
}

var rootCmd = &cobra.Command{
	Use:   "tetherd",
	Short: "Serve the reference item service",
	Long: `tetherd serves one item service on a unix socket and publishes its
record under ~/.tether/services so clients can find it. Only one instance
per namespace and service runs at a time.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runDaemon,
}

// Execute runs the daemon command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&opts.namespace, "namespace", "n", models.DefaultNamespace, "Service namespace")
	f.StringVarP(&opts.service, "service", "s", models.DefaultService, "Service name")
	f.StringVar(&opts.socket, "socket", "", "Unix socket path (default ~/.tether/run/<namespace>/<service>.sock)")
	f.StringVar(&opts.webAddr, "web-addr", "", "Serve grpc-web and /metrics on this TCP address")
	f.StringVar(&opts.redisAddr, "redis-addr", "", "Keep items in redis at this address instead of memory")
	f.StringVar(&opts.redisPassword, "redis-password", "", "Redis password")
	f.IntVar(&opts.redisDB, "redis-db", 0, "Redis database")
	f.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	logger := config.NewLogger(os.Stderr, opts.logLevel)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	d, err := daemon.New(daemon.Options{
		Namespace: opts.namespace,
		Service:   opts.service,
		Socket:    opts.socket,
		WebAddr:   opts.webAddr,
		Store: store.Options{
			RedisAddr:     opts.redisAddr,
			RedisPassword: opts.redisPassword,
			RedisDB:       opts.redisDB,
		},
		Registry: registry,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("daemon failed: %w", err)
	}
	return nil
}
