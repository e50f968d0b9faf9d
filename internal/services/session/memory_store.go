package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is the fallback backend used when Redis is unavailable.
// Namespace flush is not supported and degrades to a logged no-op.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
	}
}

func (ms *MemoryStore) Persist(ctx context.Context, key, value string, ttl time.Duration) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.entries[key] = memoryEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (ms *MemoryStore) Fetch(ctx context.Context, key string) (string, bool, error) {
	ms.mu.RLock()
	entry, ok := ms.entries[key]
	ms.mu.RUnlock()

	if !ok {
		return "", false, nil
	}
	if time.Now().After(entry.expiresAt) {
		ms.mu.Lock()
		delete(ms.entries, key)
		ms.mu.Unlock()
		return "", false, nil
	}
	return entry.value, true, nil
}

func (ms *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := ms.Fetch(ctx, key)
	return ok, err
}

func (ms *MemoryStore) Delete(ctx context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.entries, key)
	return nil
}

func (ms *MemoryStore) DeleteNamespace(ctx context.Context, namespace string) error {
	log.Warn().
		Str("namespace", namespace).
		Msg("Memory store does not support namespace flush - sessions will expire via TTL only")
	return ErrNotSupported
}

func (ms *MemoryStore) Clear(ctx context.Context) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.entries = make(map[string]memoryEntry)
	return nil
}
