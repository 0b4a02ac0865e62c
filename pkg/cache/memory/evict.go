package memory

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/pario-ai/llmemo/pkg/logging"
)

// EvictResult reports what one eviction pass removed.
type EvictResult struct {
	Expired   int `json:"expired"`   // removed by the expiry phase
	Trimmed   int `json:"trimmed"`   // removed by the capacity phase
	Remaining int `json:"remaining"` // entries left after the pass
}

// Removed is the total number of entries dropped by the pass.
func (r EvictResult) Removed() int { return r.Expired + r.Trimmed }

// Evict runs the eviction policy:
//
//  1. drop every expired entry;
//  2. if more than MaxEntries remain, drop the least-accessed entries until
//     MaxEntries/2 are left.
//
// Shrinking to half leaves headroom so the next few inserts do not trigger
// another trim.
func (s *Store) Evict() EvictResult {
	now := s.now()
	s.mu.Lock()
	res := s.evictLocked(now)
	s.mu.Unlock()

	s.report(res)
	s.publishSize()
	return res
}

type ranked struct {
	key         string
	accessCount int
	createdAt   time.Time
}

// evictLocked must be called with s.mu held.
func (s *Store) evictLocked(now time.Time) EvictResult {
	var res EvictResult
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
			res.Expired++
		}
	}

	if len(s.entries) > s.maxEntries {
		order := make([]ranked, 0, len(s.entries))
		for k, e := range s.entries {
			order = append(order, ranked{key: k, accessCount: e.accessCount, createdAt: e.createdAt})
		}
		// ties go to the older entry, then to key order
		slices.SortFunc(order, func(a, b ranked) int {
			if c := cmp.Compare(a.accessCount, b.accessCount); c != 0 {
				return c
			}
			if c := a.createdAt.Compare(b.createdAt); c != 0 {
				return c
			}
			return strings.Compare(a.key, b.key)
		})

		drop := len(s.entries) - s.maxEntries/2
		for _, r := range order[:drop] {
			delete(s.entries, r.key)
		}
		res.Trimmed = drop
	}

	res.Remaining = len(s.entries)
	return res
}

func (s *Store) report(res EvictResult) {
	if res.Removed() == 0 {
		return
	}
	s.evictions.Add(int64(res.Removed()))
	if res.Expired > 0 {
		s.hooks.Expired(res.Expired)
	}
	if res.Trimmed > 0 {
		s.hooks.Evicted(res.Trimmed)
	}
	s.log.Debug("cache eviction pass", logging.Fields{
		"expired":   res.Expired,
		"trimmed":   res.Trimmed,
		"remaining": res.Remaining,
	})
}
