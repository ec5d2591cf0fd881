package cache

import (
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/odontogram-api/pkg/metrics"
)

// Config represents cache configuration.
// DefaultTTL applies to entries stored without an explicit TTL.
// CleanupInterval determines how often expired entries are purged.
// MaxEntries bounds the cache; 0 disables the bound.
type Config struct {
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
	MaxEntries      int
}

// NoExpiration stores an entry until it is evicted or invalidated.
const NoExpiration = gocache.NoExpiration

func DefaultConfig() Config {
	return Config{
		DefaultTTL:      5 * time.Minute,
		CleanupInterval: 10 * time.Minute,
		MaxEntries:      1024,
	}
}

// Manager is an in-process cache whose keys are grouped by category so a
// whole category can be dropped at once.
type Manager struct {
	mu         sync.Mutex
	store      *gocache.Cache
	maxEntries int
	metrics    *metrics.Metrics
}

func New(cfg Config, m *metrics.Metrics) *Manager {
	if m == nil {
		m = metrics.Nop()
	}
	return &Manager{
		store:      gocache.New(cfg.DefaultTTL, cfg.CleanupInterval),
		maxEntries: cfg.MaxEntries,
		metrics:    m,
	}
}

func key(category, k string) string {
	return category + ":" + k
}

// Get returns the cached value for key within category.
func (m *Manager) Get(category, k string) (interface{}, bool) {
	v, found := m.store.Get(key(category, k))
	result := "miss"
	if found {
		result = "hit"
	}
	m.metrics.CacheLookups.WithLabelValues(category, result).Inc()
	return v, found
}

// Set stores v with ttl. A zero ttl uses the default. When the cache is full
// the entry closest to expiry is evicted first.
func (m *Manager) Set(category, k string, v interface{}, ttl time.Duration) {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	full := key(category, k)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxEntries > 0 {
		if _, exists := m.store.Get(full); !exists {
			m.store.DeleteExpired()
			for m.store.ItemCount() >= m.maxEntries {
				if !m.evictOne() {
					break
				}
			}
		}
	}
	m.store.Set(full, v, ttl)
}

func (m *Manager) Delete(category, k string) {
	m.store.Delete(key(category, k))
}

// Invalidate drops every entry of category and returns how many were removed.
func (m *Manager) Invalidate(category string) int {
	prefix := category + ":"

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for k := range m.store.Items() {
		if strings.HasPrefix(k, prefix) {
			m.store.Delete(k)
			removed++
		}
	}
	return removed
}

// Len counts stored entries, including expired ones not yet purged.
func (m *Manager) Len() int {
	return m.store.ItemCount()
}

func (m *Manager) Flush() {
	m.store.Flush()
}

// evictOne removes the entry expiring soonest. Entries that never expire are
// evicted last, in key order.
func (m *Manager) evictOne() bool {
	var (
		victim    string
		victimExp int64
		found     bool
	)
	for k, item := range m.store.Items() {
		exp := item.Expiration
		if !found || earlier(exp, victimExp) || (exp == victimExp && k < victim) {
			victim, victimExp, found = k, exp, true
		}
	}
	if found {
		m.store.Delete(victim)
	}
	return found
}

// earlier orders expirations with 0 (never) after everything else.
func earlier(a, b int64) bool {
	switch {
	case a == b:
		return false
	case a == 0:
		return false
	case b == 0:
		return true
	default:
		return a < b
	}
}
