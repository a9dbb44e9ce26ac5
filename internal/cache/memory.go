package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process Cache. Expired entries are dropped lazily on read
// and by Sweep.
type Memory struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	defaultTTL time.Duration

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewMemory creates an empty in-memory cache. A non-positive defaultTTL
// selects DefaultTTL.
func NewMemory(defaultTTL time.Duration) *Memory {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Memory{
		entries:    make(map[string]memoryEntry),
		defaultTTL: defaultTTL,
		nowFunc:    time.Now,
	}
}

func (m *Memory) Get(_ context.Context, namespace, key string) ([]byte, error) {
	if err := ValidateNamespace(namespace); err != nil {
		return nil, err
	}
	k := storageKey(namespace, key)

	m.mu.RLock()
	e, ok := m.entries[k]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrMiss
	}
	if !m.nowFunc().Before(e.expiresAt) {
		m.mu.Lock()
		// Re-check: a concurrent Set may have refreshed the entry.
		if cur, ok := m.entries[k]; ok && !m.nowFunc().Before(cur.expiresAt) {
			delete(m.entries, k)
		}
		m.mu.Unlock()
		return nil, ErrMiss
	}

	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (m *Memory) Set(_ context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	if err := ValidateNamespace(namespace); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	v := make([]byte, len(value))
	copy(v, value)

	m.mu.Lock()
	m.entries[storageKey(namespace, key)] = memoryEntry{value: v, expiresAt: m.nowFunc().Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, namespace, key string) error {
	if err := ValidateNamespace(namespace); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.entries, storageKey(namespace, key))
	m.mu.Unlock()
	return nil
}

func (m *Memory) InvalidateNamespace(_ context.Context, namespace string) (int, error) {
	if err := ValidateNamespace(namespace); err != nil {
		return 0, err
	}
	prefix := storageKey(namespace, "")

	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

// Sweep removes all expired entries and returns how many were dropped.
func (m *Memory) Sweep() int {
	now := m.nowFunc()

	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
