package binder

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/tether-io/tether/internal/config"
	"github.com/tether-io/tether/internal/models"
)

// ServiceBinary is the name of the reference service executable.
const ServiceBinary = "tetherd"

// StartService launches the service binary for (namespace, service) in
// the background, detached from the caller's session. It does not wait
// for the service to publish its record.
func StartService(path, namespace, service string, extraArgs ...string) (int, error) {
	binary, err := FindServiceBinary(path)
	if err != nil {
		return 0, err
	}

	args := append([]string{"--namespace", namespace, "--service", service}, extraArgs...)
	cmd := exec.Command(binary, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start %s: %w", ServiceBinary, err)
	}
	// Reap the child if it exits while we are still running.
	go func() { _ = cmd.Wait() }()

	return cmd.Process.Pid, nil
}

// WaitForService polls the registry until the service is running or ctx
// ends.
func WaitForService(ctx context.Context, namespace, service string) (*models.ServiceRecord, error) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		running, rec, err := config.IsServiceRunning(namespace, service)
		if err == nil && running {
			return rec, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("service %s/%s did not start: %w", namespace, service, ctx.Err())
		case <-ticker.C:
		}
	}
}

// FindServiceBinary locates the service executable: the configured path,
// then PATH, then next to the running executable, then ./build.
func FindServiceBinary(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("configured service binary %s: %w", configured, err)
		}
		return configured, nil
	}

	if path, err := exec.LookPath(ServiceBinary); err == nil {
		return path, nil
	}

	if execPath, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(execPath), ServiceBinary)
		if _, err := os.Stat(sibling); err == nil {
			return sibling, nil
		}
	}

	local := filepath.Join("build", ServiceBinary)
	if _, err := os.Stat(local); err == nil {
		return local, nil
	}

	return "", fmt.Errorf("%s not found. Install or build it first", ServiceBinary)
}
