package store

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

type entry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryStore is a single-process Store used by tests and redis-less
// development setups. Expired keys are dropped lazily on access.
type MemoryStore struct {
	mu        sync.Mutex
	entries   map[string]entry
	lists     map[string][]string
	published map[string][]string
	wake      chan struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:   make(map[string]entry),
		lists:     make(map[string][]string),
		published: make(map[string][]string),
		wake:      make(chan struct{}),
	}
}

// lookup returns the live entry for key, dropping it if expired.
// Callers must hold mu.
func (m *MemoryStore) lookup(key string) (entry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return entry{}, false
	}
	if e.expired(time.Now()) {
		delete(m.entries, key)
		return entry{}, false
	}
	return e, true
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(key)
	if !ok {
		return "", ErrNotFound
	}
	return e.value, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.lookup(key)
	return ok, nil
}

func (m *MemoryStore) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(key)
	if !ok {
		m.entries[key] = entry{value: "1"}
		return 1, nil
	}
	n, err := strconv.ParseInt(e.value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("value at %q is not an integer", key)
	}
	n++
	e.value = strconv.FormatInt(n, 10)
	m.entries[key] = e
	return n, nil
}

func (m *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(key)
	if !ok {
		return nil
	}
	e.expiresAt = time.Now().Add(ttl)
	m.entries[key] = e
	return nil
}

func (m *MemoryStore) LPush(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.lists[key] = append([]string{value}, m.lists[key]...)
	// Wake all blocked poppers; losers re-check and block again.
	close(m.wake)
	m.wake = make(chan struct{})
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) BRPop(ctx context.Context, timeout time.Duration, key string) (string, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		m.mu.Lock()
		if vals := m.lists[key]; len(vals) > 0 {
			v := vals[len(vals)-1]
			m.lists[key] = vals[:len(vals)-1]
			m.mu.Unlock()
			return v, nil
		}
		wake := m.wake
		m.mu.Unlock()

		select {
		case <-wake:
		case <-deadline.C:
			return "", ErrNotFound
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (m *MemoryStore) Publish(_ context.Context, channel, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[channel] = append(m.published[channel], message)
	return nil
}

// Messages returns everything published to channel so far.
func (m *MemoryStore) Messages(channel string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.published[channel]))
	copy(out, m.published[channel])
	return out
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
