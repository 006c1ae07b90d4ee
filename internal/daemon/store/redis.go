package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tether-io/tether/internal/models"
	"github.com/tether-io/tether/internal/wire"
)

// Redis keeps items in a redis list so they survive service restarts.
// Entries are CBOR-encoded items.
type Redis struct {
	client *redis.Client
	key    string
}

var _ Store = (*Redis)(nil)

// NewRedis connects to redis and verifies the connection.
func NewRedis(opts Options) (*Redis, error) {
	if opts.RedisKey == "" {
		return nil, errors.New("redis key is required")
	}
	rdb := redis.NewClient(&redis.Options{Addr: opts.RedisAddr, Password: opts.RedisPassword, DB: opts.RedisDB})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return &Redis{client: rdb, key: opts.RedisKey}, nil
}

func (r *Redis) Add(ctx context.Context, item models.Item) error {
	data, err := wire.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode item: %w", err)
	}
	if err := r.client.RPush(ctx, r.key, data).Err(); err != nil {
		return fmt.Errorf("failed to store item: %w", err)
	}
	return nil
}

func (r *Redis) List(ctx context.Context) ([]models.Item, error) {
	entries, err := r.client.LRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	items := make([]models.Item, 0, len(entries))
	for _, entry := range entries {
		var item models.Item
		if err := wire.Unmarshal([]byte(entry), &item); err != nil {
			return nil, fmt.Errorf("failed to decode item: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
