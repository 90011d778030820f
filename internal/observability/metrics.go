package observability

import "github.com/prometheus/client_golang/prometheus"

// Tier labels for cache metrics.
const (
	TierRequest = "request"
	TierShared  = "shared"
)

var (
	// CacheHits counts translation cache hits by tier (request|shared).
	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyglot_cache_hits_total",
			Help: "Translation cache hits by tier.",
		},
		[]string{"tier"},
	)

	// CacheMisses counts lookups that missed both tiers.
	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "polyglot_cache_misses_total",
			Help: "Translation cache lookups that missed every tier.",
		},
	)

	// CacheErrors counts shared-tier failures that were degraded to misses.
	CacheErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyglot_cache_errors_total",
			Help: "Shared cache tier errors by operation.",
		},
		[]string{"op"},
	)

	// TranslationEvents counts lifecycle notifications by kind and entity type.
	TranslationEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyglot_translation_events_total",
			Help: "Translation lifecycle notifications by kind and entity type.",
		},
		[]string{"kind", "entity_type"},
	)

	// EventsDropped counts notifications dropped by a full async sink.
	EventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "polyglot_events_dropped_total",
			Help: "Notifications dropped because the async sink buffer was full.",
		},
	)

	// OrphansRemoved counts translation rows deleted by the orphan scan.
	OrphansRemoved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "polyglot_orphans_removed_total",
			Help: "Orphaned translation rows removed by maintenance.",
		},
	)
)

func init() {
	prometheus.MustRegister(CacheHits, CacheMisses, CacheErrors, TranslationEvents, EventsDropped, OrphansRemoved)
}
