package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tether-io/tether/internal/metrics"
)

var (
	watchRetry       time.Duration
	watchMetricsAddr string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stay connected and print pushed items",
	Long: `Connect to the service and print every status change and every item
the service pushes until interrupted. The connection is re-established
automatically when the service dies. After a clean service stop the
client stays disconnected unless --retry is set.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchRetry, "retry", 0, "Reconnect interval after a clean disconnect (0 disables)")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
}

func runWatch(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	addr := watchMetricsAddr
	if addr == "" {
		addr = sess.settings.Client.MetricsAddr
	}
	if addr != "" {
		srv := &http.Server{
			Addr:              addr,
			Handler:           metrics.Handler(sess.registry),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				sess.logger.Error("metrics server failed", "addr", addr, "error", err)
			}
		}()
		defer srv.Close()
		sess.logger.Info("serving metrics", "addr", addr)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := newConsoleSink(os.Stdout)
	sup := sess.supervise(out)
	defer sup.Shutdown()

	out.plain(styleHint.Render("Watching " + sess.target.String() + ", press Ctrl+C to stop."))
	sup.Connect()

	var tick <-chan time.Time
	if watchRetry > 0 {
		ticker := time.NewTicker(watchRetry)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ignoreCanceled(ctx.Err())
		case <-tick:
			// Not-ready is expected here; the attempt is already started.
			_ = sup.EnsureConnected()
		}
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
