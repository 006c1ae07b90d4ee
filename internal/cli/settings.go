package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tether-io/tether/internal/config"
	"github.com/tether-io/tether/internal/models"
)

var settingsInit bool

var settingsCmd = &cobra.Command{
	Use:     "settings",
	Aliases: []string{"config"},
	Short:   "Show client settings",
	Long: `Show the effective client settings: ~/.tether/settings.yaml with the
global flags applied. Use --init to write a settings file with defaults.`,
	Args: cobra.NoArgs,
	RunE: runSettings,
}

func init() {
	settingsCmd.Flags().BoolVar(&settingsInit, "init", false, "Write default settings if no settings file exists")
}

func runSettings(cmd *cobra.Command, args []string) error {
	path, err := config.GlobalSettingsFile()
	if err != nil {
		return err
	}

	if settingsInit {
		if config.FileExists(path) {
			fmt.Printf("Settings already exist at %s.\n", path)
		} else {
			if err := config.SaveSettings(models.NewSettings()); err != nil {
				return fmt.Errorf("failed to save settings: %w", err)
			}
			fmt.Println(styleSuccess.Render("Wrote default settings to " + path))
		}
	}

	settings, err := resolveSettings()
	if err != nil {
		return err
	}

	row := func(label, value string) {
		fmt.Printf("  %s %s\n", styleLabel.Render(fmt.Sprintf("%-14s", label)), styleValue.Render(value))
	}
	fmt.Println(styleBrand.Render("Settings") + " " + styleHint.Render(path))
	row("service", settings.Service.Name)
	row("namespace", settings.Service.Namespace)
	row("auto_start", fmt.Sprint(settings.Daemon.AutoStart))
	row("daemon_path", orDefault(settings.Daemon.Path, "(lookup tetherd)"))
	row("redis_addr", orDefault(settings.Daemon.RedisAddr, "(in-memory store)"))
	row("call_timeout", settings.CallTimeout().String())
	row("metrics_addr", orDefault(settings.Client.MetricsAddr, "(disabled)"))
	row("log_level", settings.Client.LogLevel)
	return nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
