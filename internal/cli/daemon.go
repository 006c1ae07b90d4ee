package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/tether-io/tether/internal/binder"
	"github.com/tether-io/tether/internal/config"
	"github.com/tether-io/tether/internal/models"
)

// serviceStartTimeout bounds how long "daemon start" waits for the record.
const serviceStartTimeout = 5 * time.Second

// ensureService makes sure the configured service is running, starting it
// if necessary. started reports whether this call launched it.
func ensureService(settings *models.Settings) (rec *models.ServiceRecord, started bool, err error) {
	ns, svc := settings.Service.Namespace, settings.Service.Name

	running, rec, err := config.IsServiceRunning(ns, svc)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check service status: %w", err)
	}
	if running {
		return rec, false, nil
	}

	// Clean up a stale record if it exists
	if rec != nil {
		_ = config.RemoveServiceRecord(ns, svc)
	}

	path, err := binder.FindServiceBinary(settings.Daemon.Path)
	if err != nil {
		return nil, false, err
	}

	var args []string
	if settings.Daemon.RedisAddr != "" {
		args = append(args, "--redis-addr", settings.Daemon.RedisAddr)
	}
	if _, err := binder.StartService(path, ns, svc, args...); err != nil {
		return nil, false, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), serviceStartTimeout)
	defer cancel()
	rec, err = binder.WaitForService(ctx, ns, svc)
	if err != nil {
		return nil, false, fmt.Errorf("service failed to start within %s", serviceStartTimeout)
	}
	return rec, true, nil
}
