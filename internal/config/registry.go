package config

import (
	"errors"
	"os"
	"syscall"

	"github.com/tether-io/tether/internal/models"
)

// LoadServiceRecord loads a service record from
// ~/.tether/services/<namespace>/<service>.yaml.
// Returns nil if the file doesn't exist.
func LoadServiceRecord(namespace, service string) (*models.ServiceRecord, error) {
	path, err := ServiceFile(namespace, service)
	if err != nil {
		return nil, err
	}

	if !FileExists(path) {
		return nil, nil
	}

	var rec models.ServiceRecord
	if err := LoadYAML(path, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SaveServiceRecord publishes a service record.
func SaveServiceRecord(rec *models.ServiceRecord) error {
	if _, err := EnsureServicesDir(rec.Namespace); err != nil {
		return err
	}

	path, err := ServiceFile(rec.Namespace, rec.Service)
	if err != nil {
		return err
	}
	return SaveYAML(path, rec)
}

// RemoveServiceRecord removes a service record. Missing records are not an error.
func RemoveServiceRecord(namespace, service string) error {
	path, err := ServiceFile(namespace, service)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// IsServiceRunning checks if the process behind a service record is alive.
// Returns true if the record exists and the PID is alive. A record whose
// process is gone is removed.
func IsServiceRunning(namespace, service string) (bool, *models.ServiceRecord, error) {
	rec, err := LoadServiceRecord(namespace, service)
	if err != nil {
		return false, nil, err
	}
	if rec == nil {
		return false, nil, nil
	}

	if !ProcessAlive(rec.PID) {
		_ = RemoveServiceRecord(namespace, service)
		return false, rec, nil
	}
	return true, rec, nil
}

// ProcessAlive reports whether pid names a live process (kill -0).
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
