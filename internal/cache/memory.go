package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/docqa/backend/internal/storage/models"
	"github.com/docqa/backend/pkg/logger"
)

type entry struct {
	answer    models.Answer
	createdAt time.Time
}

// Memory is an in-process Cache guarded by a single mutex.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]entry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

type Option func(*Memory)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) { m.now = now }
}

// WithMaxEntries bounds the cache; when full, Put evicts the oldest entry.
// Zero means unbounded.
func WithMaxEntries(n int) Option {
	return func(m *Memory) { m.maxEntries = n }
}

func NewMemory(ttl time.Duration, opts ...Option) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Memory{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) TTL() time.Duration { return m.ttl }

func (m *Memory) Get(_ context.Context, key string) (models.Answer, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return models.Answer{}, false, nil
	}
	if m.expired(e, m.now()) {
		delete(m.entries, key)
		logger.Debug("Cache entry expired", zap.String("cache_key", key))
		return models.Answer{}, false, nil
	}
	return e.answer.Clone(), true, nil
}

func (m *Memory) Put(_ context.Context, key string, answer models.Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if _, exists := m.entries[key]; !exists && m.maxEntries > 0 && len(m.entries) >= m.maxEntries {
		m.sweepLocked(now)
		if len(m.entries) >= m.maxEntries {
			m.evictOldestLocked()
		}
	}

	m.entries[key] = entry{answer: answer.Clone(), createdAt: now}
	return nil
}

func (m *Memory) SweepExpired(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked(m.now()), nil
}

func (m *Memory) ClearAll(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.entries)
	m.entries = make(map[string]entry)
	return n, nil
}

// Stats reports live entries, oldest first. Expired entries are skipped but
// not removed.
func (m *Memory) Stats(_ context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	stats := Stats{TTL: m.ttl, Entries: make([]EntryStats, 0, len(m.entries))}
	for key, e := range m.entries {
		if m.expired(e, now) {
			continue
		}
		age := now.Sub(e.createdAt)
		stats.Entries = append(stats.Entries, EntryStats{
			Key:       key,
			Question:  e.answer.Question,
			Age:       age,
			ExpiresIn: m.ttl - age,
		})
	}
	sort.Slice(stats.Entries, func(i, j int) bool {
		if stats.Entries[i].Age != stats.Entries[j].Age {
			return stats.Entries[i].Age > stats.Entries[j].Age
		}
		return stats.Entries[i].Key < stats.Entries[j].Key
	})
	stats.Count = len(stats.Entries)
	return stats, nil
}

func (m *Memory) expired(e entry, now time.Time) bool {
	return now.Sub(e.createdAt) > m.ttl
}

func (m *Memory) sweepLocked(now time.Time) int {
	removed := 0
	for key, e := range m.entries {
		if m.expired(e, now) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

func (m *Memory) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for key, e := range m.entries {
		if oldestKey == "" || e.createdAt.Before(oldest) {
			oldestKey, oldest = key, e.createdAt
		}
	}
	if oldestKey != "" {
		delete(m.entries, oldestKey)
		logger.Debug("Cache entry evicted", zap.String("cache_key", oldestKey))
	}
}
