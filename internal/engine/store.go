package engine

import (
	"context"
	"maps"
	"sync"
	"time"
)

// CacheSnapshot is the persisted daily cache: the days fetched for one location.
type CacheSnapshot struct {
	LocationKey string               `json:"location_key"`
	Days        map[string]PrayerDay `json:"days"`
}

// LastState is the last successfully derived display state.
// It is only a fallback source and is never merged with live data.
type LastState struct {
	Current  Prayer    `json:"current"`
	Next     Prayer    `json:"next"`
	Boundary time.Time `json:"boundary"`
}

// Store persists the four independent engine regions.
// Each call is a single get or set; SaveCache must replace the region atomically.
// Load methods report absence with a zero value and no error.
type Store interface {
	LoadCache(ctx context.Context) (CacheSnapshot, error)
	SaveCache(ctx context.Context, snap CacheSnapshot) error

	LoadRetryUntil(ctx context.Context) (time.Time, bool, error)
	SaveRetryUntil(ctx context.Context, until time.Time) error
	ClearRetryUntil(ctx context.Context) error

	LoadLastState(ctx context.Context) (*LastState, error)
	SaveLastState(ctx context.Context, st LastState) error

	LoadLastFired(ctx context.Context) (string, error)
	SaveLastFired(ctx context.Context, key string) error
}

// MemoryStore is a process-local Store. It backs tests and hosts that run
// without a database.
type MemoryStore struct {
	mu         sync.Mutex
	cache      CacheSnapshot
	retryUntil *time.Time
	lastState  *LastState
	lastFired  string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) LoadCache(context.Context) (CacheSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return CacheSnapshot{LocationKey: m.cache.LocationKey, Days: maps.Clone(m.cache.Days)}, nil
}

func (m *MemoryStore) SaveCache(_ context.Context, snap CacheSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = CacheSnapshot{LocationKey: snap.LocationKey, Days: maps.Clone(snap.Days)}
	return nil
}

func (m *MemoryStore) LoadRetryUntil(context.Context) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.retryUntil == nil {
		return time.Time{}, false, nil
	}
	return *m.retryUntil, true, nil
}

func (m *MemoryStore) SaveRetryUntil(_ context.Context, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retryUntil = &until
	return nil
}

func (m *MemoryStore) ClearRetryUntil(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retryUntil = nil
	return nil
}

func (m *MemoryStore) LoadLastState(context.Context) (*LastState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastState == nil {
		return nil, nil
	}
	st := *m.lastState
	return &st, nil
}

func (m *MemoryStore) SaveLastState(_ context.Context, st LastState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastState = &st
	return nil
}

func (m *MemoryStore) LoadLastFired(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastFired, nil
}

func (m *MemoryStore) SaveLastFired(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFired = key
	return nil
}
