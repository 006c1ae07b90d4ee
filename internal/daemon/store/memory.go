package store

import (
	"context"
	"sync"

	"github.com/tether-io/tether/internal/models"
)

// Memory keeps items in process memory. Items are lost when the service
// exits.
type Memory struct {
	mu    sync.RWMutex
	items []models.Item
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

var _ Store = (*Memory)(nil)

func (m *Memory) Add(_ context.Context, item models.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, item)
	return nil
}

func (m *Memory) List(context.Context) ([]models.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Item, len(m.items))
	copy(out, m.items)
	return out, nil
}

func (m *Memory) Close() error { return nil }
