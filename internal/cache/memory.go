package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// Memory is an in-process LRU cache with per-entry expiry. It backs single
// instance deployments and the repository tests.
type Memory struct {
	entries    *lru.Cache[string, memoryEntry]
	defaultTTL time.Duration
	now        func() time.Time
}

// NewMemory builds a Memory holding at most capacity entries. A zero
// defaultTTL keeps entries until they are evicted or deleted.
func NewMemory(capacity int, defaultTTL time.Duration) (*Memory, error) {
	entries, err := lru.New[string, memoryEntry](capacity)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &Memory{entries: entries, defaultTTL: defaultTTL, now: time.Now}, nil
}

func (m *Memory) Get(_ context.Context, key string) (Lookup, error) {
	entry, ok := m.entries.Get(key)
	if !ok {
		return Miss, nil
	}
	if !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		m.entries.Remove(key)
		return Miss, nil
	}
	return Lookup{Value: entry.value, Hit: true}, nil
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.entries.Add(key, entry)
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		m.entries.Remove(key)
	}
	return nil
}
