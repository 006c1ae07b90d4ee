// Package store holds the items kept by the reference service.
package store

import (
	"context"
	"log/slog"

	"github.com/tether-io/tether/internal/models"
)

// Store is an append-only item list.
type Store interface {
	Add(ctx context.Context, item models.Item) error
	List(ctx context.Context) ([]models.Item, error)
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	// RedisAddr selects the redis backend when set.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// RedisKey is the list key; defaults to "tether:<namespace>:<service>:items".
	RedisKey string
}

// New creates either an in-memory or redis-backed store.
func New(opts Options, logger *slog.Logger) (Store, error) {
	if opts.RedisAddr == "" {
		logger.Info("item store backend", "type", "memory")
		return NewMemory(), nil
	}
	logger.Info("item store backend", "type", "redis", "addr", opts.RedisAddr)
	return NewRedis(opts)
}

// RedisKey returns the default list key for a service.
func RedisKey(namespace, service string) string {
	return "tether:" + namespace + ":" + service + ":items"
}
