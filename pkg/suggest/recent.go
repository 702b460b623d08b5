package suggest

import (
	"context"
	"strings"
	"sync"
)

// DefaultRecentLimit is how many recent searches are kept.
const DefaultRecentLimit = 5

// Recents remembers what the user searched for, most recent first.
type Recents interface {
	Add(ctx context.Context, query string) error
	List(ctx context.Context, limit int) ([]string, error)
}

// MemoryRecents keeps recent searches in memory, without duplicates.
type MemoryRecents struct {
	mu    sync.Mutex
	items []string
	limit int
}

func NewMemoryRecents(limit int) *MemoryRecents {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return &MemoryRecents{limit: limit}
}

func (m *MemoryRecents) Add(_ context.Context, query string) error {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	items := make([]string, 0, m.limit)
	items = append(items, q)
	for _, it := range m.items {
		if it != q && len(items) < m.limit {
			items = append(items, it)
		}
	}
	m.items = items
	return nil
}

func (m *MemoryRecents) List(_ context.Context, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.items) {
		limit = len(m.items)
	}
	out := make([]string, limit)
	copy(out, m.items)
	return out, nil
}
