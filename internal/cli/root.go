// Package cli implements the tether client commands.
package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// globalFlags override the matching settings.yaml values when set.
type globalFlags struct {
	service     string
	namespace   string
	noAutoStart bool
	timeout     time.Duration
	logLevel    string
}

var flags globalFlags

var rootCmd = &cobra.Command{
	Use:   "tether",
	Short: "Stay connected to a remote item service",
	Long: `Tether binds to a named item service, keeps the connection alive across
service restarts and relays the items the service pushes.

Run "tether ui" for the interactive client, or use the one-shot commands.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// errReported marks a failure whose status line was already printed.
var errReported = errors.New("command failed")

// Execute runs the CLI.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, errReported) {
		fmt.Fprintln(os.Stderr, styleError.Render("Error:"), err)
	}
	return err
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.service, "service", "s", "", "Service name (default from settings)")
	pf.StringVarP(&flags.namespace, "namespace", "n", "", "Service namespace (default from settings)")
	pf.BoolVar(&flags.noAutoStart, "no-auto-start", false, "Never launch the service when it is absent")
	pf.DurationVar(&flags.timeout, "timeout", 0, "Per-call timeout (default from settings)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Client log level: debug, info, warn, error")

	// Add subcommands (alphabetical)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(uiCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(watchCmd)
}
