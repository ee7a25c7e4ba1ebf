// Package cachetest provides an in-memory cache.Cache for tests.
package cachetest

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/hazelquimpo21/thecleverkit-sub001/internal/cache"
)

type entry struct {
	value   []byte
	expires time.Time
}

// Memory honours TTLs against Now, which tests may replace. Err, when set, is
// returned by every call.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	Now     func() time.Time
	Err     error
}

func NewMemory() *Memory {
	return &Memory{entries: map[string]entry{}, Now: time.Now}
}

func (m *Memory) live(key string) (entry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return entry{}, false
	}
	if !e.expires.IsZero() && !m.Now().Before(e.expires) {
		delete(m.entries, key)
		return entry{}, false
	}
	return e, true
}

func (m *Memory) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.Now().Add(ttl)
}

func (m *Memory) Ping(context.Context) error { return m.Err }

func (m *Memory) SetIfAbsent(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	if _, ok := m.live(key); ok {
		return false, nil
	}
	m.entries[key] = entry{value: value, expires: m.expiry(ttl)}
	return true, nil
}

// IncrWithExpiry refreshes the expiry on every call, like the Redis
// implementation.
func (m *Memory) IncrWithExpiry(_ context.Context, key string, expiry time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	e, ok := m.live(key)
	var n int64
	if ok {
		n, _ = strconv.ParseInt(string(e.value), 10, 64)
	}
	e.expires = m.expiry(expiry)
	n++
	e.value = []byte(strconv.FormatInt(n, 10))
	m.entries[key] = e
	return n, nil
}

var _ cache.Cache = (*Memory)(nil)
