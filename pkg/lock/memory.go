package lock

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	token     string
	expiresAt time.Time
}

// Memory is a process-local Locker.
type Memory struct {
	mu    sync.Mutex
	held  map[string]memoryEntry
	clock func() time.Time
}

func NewMemory() *Memory {
	return &Memory{held: map[string]memoryEntry{}, clock: time.Now}
}

func (m *Memory) Acquire(_ context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	if e, ok := m.held[key]; ok && now.Before(e.expiresAt) {
		return nil, ErrNotAcquired
	}
	m.held[key] = memoryEntry{token: token, expiresAt: now.Add(ttl)}

	return func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if e, ok := m.held[key]; ok && e.token == token {
			delete(m.held, key)
		}
		return nil
	}, nil
}
