package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRegistry holds all Prometheus metrics for the migration pipeline
type MetricsRegistry struct {
	// Normalization metrics
	LabelsResolvedTotal  prometheus.CounterVec
	LabelsUnmatchedTotal prometheus.CounterVec
	LabelsAmbiguousTotal prometheus.CounterVec
	EntitiesCreatedTotal prometheus.CounterVec

	// Asset relocation metrics
	AssetsRelocatedTotal  prometheus.CounterVec
	AssetDedupHitsTotal   prometheus.Counter
	AssetTransferDuration prometheus.Histogram

	// Cache metrics
	CacheHitsTotal   prometheus.CounterVec
	CacheMissesTotal prometheus.CounterVec

	// Step metrics
	StepDuration prometheus.HistogramVec
}

var (
	registry *MetricsRegistry
	once     sync.Once
)

// Default returns the process-wide registry. Metrics register against
// the default Prometheus registry exactly once.
func Default() *MetricsRegistry {
	once.Do(func() {
		registry = newMetricsRegistry()
	})
	return registry
}

func newMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		LabelsResolvedTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shoreline_labels_resolved_total",
				Help: "Legacy labels resolved to a canonical entity, by table",
			},
			[]string{"table"},
		),
		LabelsUnmatchedTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shoreline_labels_unmatched_total",
				Help: "Legacy labels with no canonical match, by table",
			},
			[]string{"table"},
		),
		LabelsAmbiguousTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shoreline_labels_ambiguous_total",
				Help: "Legacy labels left unresolved because multiple entities matched, by table",
			},
			[]string{"table"},
		),
		EntitiesCreatedTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shoreline_entities_created_total",
				Help: "Canonical entities created during normalization, by entity type",
			},
			[]string{"entity_type"},
		),

		AssetsRelocatedTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shoreline_assets_relocated_total",
				Help: "Asset transfers by terminal status",
			},
			[]string{"status"},
		),
		AssetDedupHitsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "shoreline_asset_dedup_hits_total",
				Help: "Transfers skipped because the source URL was already relocated",
			},
		),
		AssetTransferDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "shoreline_asset_transfer_duration_seconds",
				Help:    "Download plus upload time per unique asset",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),

		CacheHitsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shoreline_cache_hits_total",
				Help: "Dedup cache hits by key pattern",
			},
			[]string{"cache_key_pattern"},
		),
		CacheMissesTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shoreline_cache_misses_total",
				Help: "Dedup cache misses by key pattern",
			},
			[]string{"cache_key_pattern"},
		),

		StepDuration: *promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shoreline_step_duration_seconds",
				Help:    "Pipeline step execution time in seconds",
				Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"step"},
		),
	}
}
