package models

import "time"

// Default service coordinates, used when settings.yaml leaves them empty.
const (
	DefaultService   = "item-service"
	DefaultNamespace = "tether"
)

// ServiceConfig identifies the remote service the client binds to.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	Namespace string `yaml:"namespace"`
}

// DaemonConfig controls how the client starts the service when it is absent.
type DaemonConfig struct {
	AutoStart bool   `yaml:"auto_start"`
	Path      string `yaml:"path"` // empty = lookup tetherd in PATH
	RedisAddr string `yaml:"redis_addr,omitempty"`
}

// ClientConfig holds client call behavior.
type ClientConfig struct {
	CallTimeout string `yaml:"call_timeout"` // Go duration, e.g. "5s"
	MetricsAddr string `yaml:"metrics_addr,omitempty"`
	LogLevel    string `yaml:"log_level"`
}

// Settings represents global client settings.
// This corresponds to ~/.tether/settings.yaml.
type Settings struct {
	Version int           `yaml:"version"`
	Service ServiceConfig `yaml:"service"`
	Daemon  DaemonConfig  `yaml:"daemon"`
	Client  ClientConfig  `yaml:"client"`
}

// NewSettings creates settings with default values.
func NewSettings() *Settings {
	return &Settings{
		Version: 1,
		Service: ServiceConfig{
			Name:      DefaultService,
			Namespace: DefaultNamespace,
		},
		Daemon: DaemonConfig{
			AutoStart: true,
			Path:      "",
		},
		Client: ClientConfig{
			CallTimeout: "5s",
			LogLevel:    "info",
		},
	}
}

// CallTimeout parses the configured call timeout, falling back to 5s.
func (s *Settings) CallTimeout() time.Duration {
	d, err := time.ParseDuration(s.Client.CallTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}
