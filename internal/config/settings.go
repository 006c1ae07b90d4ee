package config

import (
	"github.com/tether-io/tether/internal/models"
)

// LoadSettings loads the global settings from ~/.tether/settings.yaml.
// If the file doesn't exist, returns default settings. Missing service
// coordinates are filled with the defaults.
func LoadSettings() (*models.Settings, error) {
	path, err := GlobalSettingsFile()
	if err != nil {
		return nil, err
	}
	settings, err := LoadYAMLOrDefault(path, models.NewSettings)
	if err != nil {
		return nil, err
	}
	if settings.Service.Name == "" {
		settings.Service.Name = models.DefaultService
	}
	if settings.Service.Namespace == "" {
		settings.Service.Namespace = models.DefaultNamespace
	}
	return settings, nil
}

// SaveSettings saves the global settings to ~/.tether/settings.yaml.
func SaveSettings(settings *models.Settings) error {
	if err := EnsureGlobalDir(); err != nil {
		return err
	}
	path, err := GlobalSettingsFile()
	if err != nil {
		return err
	}
	return SaveYAML(path, settings)
}
