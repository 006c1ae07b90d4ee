package cli

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tether-io/tether/internal/config"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the item service daemon",
	Long:  `Manage the tetherd process serving the configured service.`,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show service status",
	RunE:  runDaemonStatus,
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the service",
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the service",
	RunE:  runDaemonStop,
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonStopCmd)
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	settings, err := resolveSettings()
	if err != nil {
		return err
	}

	fmt.Print("Starting service...")
	rec, started, err := ensureService(settings)
	if err != nil {
		fmt.Println()
		return err
	}
	if !started {
		fmt.Printf(" already running (PID %d).\n", rec.PID)
		return nil
	}
	fmt.Printf(" started (PID %d, %s).\n", rec.PID, rec.Socket)
	return nil
}

func runDaemonStatus(cmd *cobra.Command, args []string) error {
	settings, err := resolveSettings()
	if err != nil {
		return err
	}
	ns, svc := settings.Service.Namespace, settings.Service.Name

	running, rec, err := config.IsServiceRunning(ns, svc)
	if err != nil {
		return fmt.Errorf("failed to check service status: %w", err)
	}
	if !running || rec == nil {
		fmt.Printf("Service %s/%s is not running.\n", ns, svc)
		return nil
	}

	uptime := time.Since(rec.StartedAt).Truncate(time.Second)

	fmt.Printf("Service %s/%s is running.\n", ns, svc)
	fmt.Printf("  %s     %s\n", styleLabel.Render("Socket:"), styleValue.Render(rec.Socket))
	if rec.WebAddr != "" {
		fmt.Printf("  %s        %s\n", styleLabel.Render("Web:"), styleValue.Render(rec.WebAddr))
	}
	fmt.Printf("  %s        %s\n", styleLabel.Render("PID:"), styleValue.Render(fmt.Sprint(rec.PID)))
	fmt.Printf("  %s     %s\n", styleLabel.Render("Uptime:"), styleValue.Render(uptime.String()))
	return nil
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	settings, err := resolveSettings()
	if err != nil {
		return err
	}
	ns, svc := settings.Service.Namespace, settings.Service.Name

	running, rec, err := config.IsServiceRunning(ns, svc)
	if err != nil {
		return fmt.Errorf("failed to check service status: %w", err)
	}
	if !running || rec == nil {
		fmt.Println("Service is not running.")
		return nil
	}

	// Send SIGTERM; tetherd withdraws its record and notifies subscribers
	process, err := os.FindProcess(rec.PID)
	if err != nil {
		return fmt.Errorf("failed to find service process: %w", err)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send stop signal: %w", err)
	}

	// Poll for shutdown (max 5 seconds)
	for i := 0; i < 50; i++ {
		time.Sleep(100 * time.Millisecond)
		stillRunning, _, err := config.IsServiceRunning(ns, svc)
		if err == nil && !stillRunning {
			fmt.Println(styleSuccess.Render("Service stopped."))
			return nil
		}
	}

	return fmt.Errorf("service did not stop within timeout")
}
