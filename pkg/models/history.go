package models

import "time"

// HistoryRecord is one journaled ask, hit or miss.
type HistoryRecord struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Model     string    `json:"model"`
	Variant   string    `json:"variant"`
	CacheHit  bool      `json:"cache_hit"`
	LatencyMs int64     `json:"latency_ms"`
	Response  string    `json:"response,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
