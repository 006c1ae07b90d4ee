// Package config handles configuration loading, saving, and path management.
package config

import (
	"os"
	"path/filepath"
)

const (
	// GlobalDirName is the name of the global Tether directory.
	GlobalDirName = ".tether"

	// HomeEnv overrides the global directory location.
	HomeEnv = "TETHER_HOME"

	// ServicesDirName holds one record directory per namespace.
	ServicesDirName = "services"

	// RunDirName holds service sockets and lock files.
	RunDirName = "run"

	// LogsDirName is the name of the logs directory.
	LogsDirName = "logs"
)

// File names
const (
	SettingsFileName = "settings.yaml"
	ClientLogName    = "tether.log"
	RecordExt        = ".yaml"
)

// GlobalDir returns the path to the global Tether directory (~/.tether/),
// or $TETHER_HOME when set.
func GlobalDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, GlobalDirName), nil
}

// GlobalSettingsFile returns the path to the settings.yaml file.
func GlobalSettingsFile() (string, error) {
	dir, err := GlobalDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SettingsFileName), nil
}

// GlobalLogsDir returns the path to the logs directory.
func GlobalLogsDir() (string, error) {
	dir, err := GlobalDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, LogsDirName), nil
}

// ServicesDir returns the record directory for a namespace.
func ServicesDir(namespace string) (string, error) {
	dir, err := GlobalDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ServicesDirName, namespace), nil
}

// ServiceFile returns the path to a service record.
func ServiceFile(namespace, service string) (string, error) {
	dir, err := ServicesDir(namespace)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, service+RecordExt), nil
}

// RunDir returns the socket directory for a namespace.
func RunDir(namespace string) (string, error) {
	dir, err := GlobalDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, RunDirName, namespace), nil
}

// ServiceSocket returns the default socket path for a service.
func ServiceSocket(namespace, service string) (string, error) {
	dir, err := RunDir(namespace)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, service+".sock"), nil
}

// ServiceLockFile returns the single-instance lock path for a service.
func ServiceLockFile(namespace, service string) (string, error) {
	dir, err := RunDir(namespace)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, service+".lock"), nil
}

// EnsureGlobalDir creates the global Tether directory if it doesn't exist.
func EnsureGlobalDir() error {
	dir, err := GlobalDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// EnsureServicesDir creates the record directory for a namespace.
func EnsureServicesDir(namespace string) (string, error) {
	dir, err := ServicesDir(namespace)
	if err != nil {
		return "", err
	}
	return dir, os.MkdirAll(dir, 0755)
}

// EnsureRunDir creates the socket directory for a namespace.
func EnsureRunDir(namespace string) error {
	dir, err := RunDir(namespace)
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// EnsureGlobalLogsDir creates the global logs directory if it doesn't exist.
func EnsureGlobalLogsDir() error {
	dir, err := GlobalLogsDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}
