package entity

import "time"

// MetricsSnapshot is a point-in-time copy of the cumulative gateway
// counters. All values grow monotonically between explicit clears.
type MetricsSnapshot struct {
	TotalRequests    int64              `json:"total_requests"`
	Errors           int64              `json:"errors"`
	TotalTokens      int64              `json:"total_tokens"`
	TotalCostUSD     float64            `json:"total_cost_usd"`
	CacheHits        int64              `json:"cache_hits"`
	CacheMisses      int64              `json:"cache_misses"`
	CacheHitRatePct  float64            `json:"cache_hit_rate_percent"`
	AverageLatencyMs float64            `json:"average_latency_ms"`
	RequestsByModel  map[string]int64   `json:"requests_by_model"`
	TokensByModel    map[string]int64   `json:"tokens_by_model"`
	CostByModel      map[string]float64 `json:"cost_by_model"`
	LastReset        time.Time          `json:"last_reset"`
}
