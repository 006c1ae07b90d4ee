package models

import "time"

// ServiceRecord describes a running item service.
// This corresponds to ~/.tether/services/<namespace>/<service>.yaml.
type ServiceRecord struct {
	Version   int       `yaml:"version"`
	Service   string    `yaml:"service"`
	Namespace string    `yaml:"namespace"`
	Socket    string    `yaml:"socket"`
	WebAddr   string    `yaml:"web_addr,omitempty"`
	PID       int       `yaml:"pid"`
	StartedAt time.Time `yaml:"started_at"`
}

// NewServiceRecord creates a service record with current values.
func NewServiceRecord(namespace, service, socket string, pid int) *ServiceRecord {
	return &ServiceRecord{
		Version:   1,
		Service:   service,
		Namespace: namespace,
		Socket:    socket,
		PID:       pid,
		StartedAt: time.Now().UTC(),
	}
}
