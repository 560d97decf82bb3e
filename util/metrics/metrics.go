package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheEntries tracks the number of entries held per cache kind
	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "driftmark_cache_entries",
			Help: "Number of entries resident in each in-memory cache kind",
		},
		[]string{"kind"},
	)

	// DirtyEntries tracks the number of ids pending durable write per cache kind
	DirtyEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "driftmark_dirty_entries",
			Help: "Number of ids pending durable write in each cache kind",
		},
		[]string{"kind"},
	)

	// FlushDuration tracks the duration of persistence flushes in seconds
	FlushDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "driftmark_flush_duration_seconds",
			Help:    "Duration of persistence flushes per cache kind in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 1, 10},
		},
		[]string{"kind"},
	)

	// FlushErrorsTotal tracks the total number of failed durable writes
	FlushErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "driftmark_flush_errors_total",
			Help: "Total number of failed durable writes, retried on the next flush",
		},
		[]string{"kind"},
	)

	// ActiveBattles tracks the number of battles currently in the active map
	ActiveBattles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "driftmark_active_battles",
			Help: "Number of battles currently active",
		},
	)

	// ShotsFiredTotal tracks the total number of weapon salvos fired
	ShotsFiredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "driftmark_shots_fired_total",
			Help: "Total number of weapon salvos fired, by firing side",
		},
		[]string{"side"},
	)

	// BattlesResolvedTotal tracks the total number of battles resolved
	BattlesResolvedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "driftmark_battles_resolved_total",
			Help: "Total number of battles resolved to a terminal record",
		},
	)

	// BattleTickDuration tracks the duration of scheduler ticks in seconds
	BattleTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "driftmark_battle_tick_duration_seconds",
			Help:    "Duration of battle scheduler ticks in seconds",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1},
		},
	)
)

// SetCacheEntries sets the resident entry count for a cache kind
func SetCacheEntries(kind string, count int) {
	CacheEntries.WithLabelValues(kind).Set(float64(count))
}

// SetDirtyEntries sets the pending-write count for a cache kind
func SetDirtyEntries(kind string, count int) {
	DirtyEntries.WithLabelValues(kind).Set(float64(count))
}

// RecordFlush records the duration of one flush pass over a cache kind
func RecordFlush(kind string, durationSeconds float64) {
	FlushDuration.WithLabelValues(kind).Observe(durationSeconds)
}

// RecordFlushError increments the failed-write counter for a cache kind
func RecordFlushError(kind string) {
	FlushErrorsTotal.WithLabelValues(kind).Inc()
}

// SetActiveBattles sets the active battle count
func SetActiveBattles(count int) {
	ActiveBattles.Set(float64(count))
}

// RecordShotFired increments the salvo counter for the firing side
func RecordShotFired(side string) {
	ShotsFiredTotal.WithLabelValues(side).Inc()
}

// RecordBattleResolved increments the resolved battle counter
func RecordBattleResolved() {
	BattlesResolvedTotal.Inc()
}

// RecordBattleTick records the duration of one scheduler tick
func RecordBattleTick(durationSeconds float64) {
	BattleTickDuration.Observe(durationSeconds)
}
