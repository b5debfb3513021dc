package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventCacheHit   EventType = "cache_hit"
	EventCacheMiss  EventType = "cache_miss"
	EventZeroResult EventType = "zero_result"
	EventError      EventType = "error"
)

type SearchEvent struct {
	Type      EventType `json:"type"`
	Mode      string    `json:"mode"`
	Query     string    `json:"query"`
	Terms     []string  `json:"terms"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}
