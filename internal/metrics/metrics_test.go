package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAggregatorRecord(t *testing.T) {
	agg := NewAggregator()

	agg.Record("gemini-2.5-flash", 100, 50, 0.002, 120*time.Millisecond, false)
	agg.Record("gemini-2.5-flash", 0, 0, 0, 0, true)
	agg.Record("gpt-4o", 200, 100, 0.01, 240*time.Millisecond, false)

	snap := agg.Snapshot()
	require.EqualValues(t, 3, snap.TotalRequests)
	require.EqualValues(t, 450, snap.TotalTokens)
	require.InDelta(t, 0.012, snap.TotalCostUSD, 1e-9)
	require.EqualValues(t, 1, snap.CacheHits)
	require.EqualValues(t, 2, snap.CacheMisses)
	require.InDelta(t, 100.0/3, snap.CacheHitRatePct, 1e-9)
	require.InDelta(t, 120, snap.AverageLatencyMs, 1e-9)
	require.EqualValues(t, 2, snap.RequestsByModel["gemini-2.5-flash"])
	require.EqualValues(t, 1, snap.RequestsByModel["gpt-4o"])
	require.EqualValues(t, 300, snap.TokensByModel["gpt-4o"])
}

func TestAggregatorRecordError(t *testing.T) {
	agg := NewAggregator()

	agg.RecordError("gpt-4o")
	agg.Record("gpt-4o", 10, 10, 0, time.Millisecond, false)

	snap := agg.Snapshot()
	require.EqualValues(t, 2, snap.TotalRequests)
	require.EqualValues(t, 1, snap.Errors)
}

func TestAggregatorClear(t *testing.T) {
	agg := NewAggregator()
	agg.Record("m", 10, 10, 0.5, time.Millisecond, false)
	agg.RecordError("m")

	before := agg.Snapshot().LastReset
	time.Sleep(time.Millisecond)
	agg.Clear()

	snap := agg.Snapshot()
	require.Zero(t, snap.TotalRequests)
	require.Zero(t, snap.Errors)
	require.Zero(t, snap.TotalTokens)
	require.Zero(t, snap.TotalCostUSD)
	require.Zero(t, snap.CacheHitRatePct)
	require.Empty(t, snap.RequestsByModel)
	require.True(t, snap.LastReset.After(before))
}

func TestAggregatorConcurrentRecords(t *testing.T) {
	agg := NewAggregator()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				agg.Record("m", 1, 1, 0.001, time.Millisecond, j%2 == 0)
			}
		}()
	}
	wg.Wait()

	snap := agg.Snapshot()
	require.EqualValues(t, 800, snap.TotalRequests)
	require.EqualValues(t, 1600, snap.TotalTokens)
	require.EqualValues(t, 400, snap.CacheHits)
	require.EqualValues(t, 400, snap.CacheMisses)
}

func TestSnapshotIsACopy(t *testing.T) {
	agg := NewAggregator()
	agg.Record("m", 1, 1, 0, 0, false)

	snap := agg.Snapshot()
	snap.RequestsByModel["m"] = 99

	require.EqualValues(t, 1, agg.Snapshot().RequestsByModel["m"])
}
