package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"axon-core/internal/domain/entity"
)

var (
	requestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axon_gateway_requests_total",
			Help: "Total number of routed generation requests",
		},
		[]string{"model", "cache"},
	)

	tokenCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axon_gateway_tokens_total",
			Help: "Total tokens consumed across backends",
		},
		[]string{"model"},
	)

	costTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axon_gateway_cost_usd_total",
			Help: "Estimated cumulative backend cost in USD",
		},
		[]string{"model"},
	)

	requestLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "axon_gateway_request_latency_seconds",
			Help: "Generation request latency in seconds",
		},
	)

	errorCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axon_gateway_errors_total",
			Help: "Total failed generation requests",
		},
		[]string{"model"},
	)
)

// Aggregator accumulates request counts, token usage, cost, latency and
// cache hit/miss across all routed requests. Counters only grow between
// clears; Clear is the single operation that resets them. The same figures
// are mirrored into Prometheus collectors (which are never reset).
type Aggregator struct {
	mu sync.Mutex

	totalRequests int64
	errors        int64
	totalTokens   int64
	totalCost     float64
	cacheHits     int64
	cacheMisses   int64

	latencySum   time.Duration
	latencyCount int64

	requestsByModel map[string]int64
	tokensByModel   map[string]int64
	costByModel     map[string]float64

	lastReset time.Time
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		requestsByModel: make(map[string]int64),
		tokensByModel:   make(map[string]int64),
		costByModel:     make(map[string]float64),
		lastReset:       time.Now(),
	}
}

func (a *Aggregator) Record(model string, tokensIn, tokensOut int, cost float64, latency time.Duration, cacheHit bool) {
	tokens := int64(tokensIn + tokensOut)

	a.mu.Lock()
	a.totalRequests++
	a.totalTokens += tokens
	a.totalCost += cost
	a.latencySum += latency
	a.latencyCount++
	if cacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	a.requestsByModel[model]++
	a.tokensByModel[model] += tokens
	a.costByModel[model] += cost
	a.mu.Unlock()

	cacheLabel := "miss"
	if cacheHit {
		cacheLabel = "hit"
	}
	requestCount.WithLabelValues(model, cacheLabel).Inc()
	tokenCount.WithLabelValues(model).Add(float64(tokens))
	costTotal.WithLabelValues(model).Add(cost)
	requestLatency.Observe(latency.Seconds())
}

func (a *Aggregator) RecordError(model string) {
	a.mu.Lock()
	a.totalRequests++
	a.errors++
	a.mu.Unlock()

	errorCount.WithLabelValues(model).Inc()
}

func (a *Aggregator) Snapshot() entity.MetricsSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := entity.MetricsSnapshot{
		TotalRequests:   a.totalRequests,
		Errors:          a.errors,
		TotalTokens:     a.totalTokens,
		TotalCostUSD:    a.totalCost,
		CacheHits:       a.cacheHits,
		CacheMisses:     a.cacheMisses,
		RequestsByModel: make(map[string]int64, len(a.requestsByModel)),
		TokensByModel:   make(map[string]int64, len(a.tokensByModel)),
		CostByModel:     make(map[string]float64, len(a.costByModel)),
		LastReset:       a.lastReset,
	}
	if a.totalRequests > 0 {
		snap.CacheHitRatePct = float64(a.cacheHits) / float64(a.totalRequests) * 100
	}
	if a.latencyCount > 0 {
		snap.AverageLatencyMs = float64(a.latencySum.Milliseconds()) / float64(a.latencyCount)
	}
	for k, v := range a.requestsByModel {
		snap.RequestsByModel[k] = v
	}
	for k, v := range a.tokensByModel {
		snap.TokensByModel[k] = v
	}
	for k, v := range a.costByModel {
		snap.CostByModel[k] = v
	}
	return snap
}

func (a *Aggregator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalRequests = 0
	a.errors = 0
	a.totalTokens = 0
	a.totalCost = 0
	a.cacheHits = 0
	a.cacheMisses = 0
	a.latencySum = 0
	a.latencyCount = 0
	a.requestsByModel = make(map[string]int64)
	a.tokensByModel = make(map[string]int64)
	a.costByModel = make(map[string]float64)
	a.lastReset = time.Now()
}
