// Package memory implements the in-process response cache: a mutex-guarded
// map with per-entry TTL, access counting and a two-phase eviction pass.
//
// The lock covers single map operations only. Callers that check, call a
// backend, then populate must expect other goroutines to interleave between
// the Get and the Put.
package memory

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pario-ai/llmemo/pkg/logging"
	"github.com/pario-ai/llmemo/pkg/models"
)

const (
	// DefaultMaxEntries is the hard capacity used when Options.MaxEntries is unset.
	DefaultMaxEntries = 1000
	// DefaultTTL is the entry lifetime used when Options.DefaultTTL is unset.
	DefaultTTL = time.Hour
)

// Options tune a Store. The zero value is usable.
type Options struct {
	MaxEntries      int           // hard capacity; 0 => DefaultMaxEntries
	DefaultTTL      time.Duration // used by Put when ttl <= 0; 0 => DefaultTTL
	CleanupInterval time.Duration // background Evict period; 0 disables the janitor
	AutoEvict       bool          // run the eviction pass inside Put once size exceeds MaxEntries
	Logger          logging.Logger
	Hooks           Hooks
	Now             func() time.Time // clock; nil => time.Now
}

type entry struct {
	value       string
	createdAt   time.Time
	expiresAt   time.Time
	accessCount int
}

// Store is the response cache. All methods are safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry

	maxEntries int
	ttl        time.Duration
	autoEvict  bool
	now        func() time.Time
	log        logging.Logger
	hooks      Hooks

	// sizeMu orders Size hooks so the last one published matches the map.
	sizeMu sync.Mutex

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64

	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a Store and starts the janitor when CleanupInterval > 0.
func New(opts Options) *Store {
	s := &Store{
		entries:    make(map[string]*entry),
		maxEntries: opts.MaxEntries,
		ttl:        opts.DefaultTTL,
		autoEvict:  opts.AutoEvict,
		now:        opts.Now,
		log:        logging.OrNop(opts.Logger),
		hooks:      opts.Hooks,
	}
	if s.maxEntries <= 0 {
		s.maxEntries = DefaultMaxEntries
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.hooks == nil {
		s.hooks = NopHooks{}
	}

	if opts.CleanupInterval > 0 {
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go s.janitor(opts.CleanupInterval)
	}
	return s
}

// Get returns the cached value for key. A hit bumps the entry's access
// count; an expired entry is removed and reported as a miss.
func (s *Store) Get(key string) (string, bool) {
	now := s.now()

	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		s.misses.Add(1)
		s.hooks.Miss()
		return "", false
	}
	if !now.Before(e.expiresAt) {
		delete(s.entries, key)
		s.mu.Unlock()

		s.misses.Add(1)
		s.hooks.Expired(1)
		s.hooks.Miss()
		s.publishSize()
		return "", false
	}
	e.accessCount++
	value := e.value
	s.mu.Unlock()

	s.hits.Add(1)
	s.hooks.Hit()
	return value, true
}

// Put inserts or replaces the entry for key. A replaced entry starts over
// with an access count of 1. ttl <= 0 uses the store default.
func (s *Store) Put(key, value string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	now := s.now()

	s.mu.Lock()
	s.entries[key] = &entry{
		value:       value,
		createdAt:   now,
		expiresAt:   now.Add(ttl),
		accessCount: 1,
	}
	var res EvictResult
	if s.autoEvict && len(s.entries) > s.maxEntries {
		res = s.evictLocked(now)
	}
	s.mu.Unlock()

	s.report(res)
	s.publishSize()
}

// Peek returns a copy of the entry for key without counting an access or
// removing it when expired.
func (s *Store) Peek(key string) (models.CacheEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return models.CacheEntry{}, false
	}
	return models.CacheEntry{
		Key:         key,
		Value:       e.value,
		CreatedAt:   e.createdAt,
		ExpiresAt:   e.expiresAt,
		AccessCount: e.accessCount,
	}, true
}

// Clear removes every entry and returns how many were dropped.
func (s *Store) Clear() int {
	s.mu.Lock()
	n := len(s.entries)
	s.entries = make(map[string]*entry)
	s.mu.Unlock()

	s.publishSize()
	if n > 0 {
		s.log.Debug("cache cleared", logging.Fields{"removed": n})
	}
	return n
}

// Len returns the number of stored entries, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// publishSize reports the current entry count. The count is read while
// sizeMu is held, so concurrent mutations cannot publish out of order.
func (s *Store) publishSize() {
	s.sizeMu.Lock()
	defer s.sizeMu.Unlock()
	s.hooks.Size(s.Len())
}

// MaxEntries returns the hard capacity.
func (s *Store) MaxEntries() int { return s.maxEntries }

// Stats scans the store and classifies entries as valid or expired. It does
// not remove anything.
func (s *Store) Stats() models.CacheStats {
	now := s.now()
	st := models.CacheStats{
		MaxCapacity: s.maxEntries,
		Hits:        s.hits.Load(),
		Misses:      s.misses.Load(),
		Evictions:   s.evictions.Load(),
	}

	s.mu.Lock()
	st.Total = len(s.entries)
	for _, e := range s.entries {
		if now.Before(e.expiresAt) {
			st.Valid++
		} else {
			st.Expired++
		}
		st.TotalAccesses += int64(e.accessCount)
	}
	s.mu.Unlock()
	return st
}

// Close stops the janitor. Safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		if s.stopCh != nil {
			close(s.stopCh)
			s.wg.Wait()
		}
	})
	return nil
}

func (s *Store) janitor(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Evict()
		case <-s.stopCh:
			return
		}
	}
}
