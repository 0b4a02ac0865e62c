package models

import "time"

// CacheEntry is a memoized backend response.
type CacheEntry struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	AccessCount int       `json:"access_count"`
}

// Expired reports whether the entry is stale at now.
func (e CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// CacheStats is a point-in-time snapshot of the response cache.
type CacheStats struct {
	Total         int   `json:"total"`
	Valid         int   `json:"valid"`
	Expired       int   `json:"expired"`
	TotalAccesses int64 `json:"total_accesses"`
	MaxCapacity   int   `json:"max_capacity"`
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Evictions     int64 `json:"evictions"`
}

// HitRate returns hits as a fraction of all lookups.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
