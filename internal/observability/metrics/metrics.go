package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
)

// Module provides the prometheus registry and application instruments.
var Module = fx.Module("observability.metrics",
	fx.Provide(NewRegistry),
	fx.Provide(New),
)

// Metrics exposes application-level instruments.
type Metrics struct {
	cacheHits     *prometheus.CounterVec
	cacheMisses   *prometheus.CounterVec
	cacheStale    *prometheus.CounterVec
	providerCalls *prometheus.CounterVec
	providerDur   *prometheus.HistogramVec
	creditsSpent  *prometheus.CounterVec
	quotaRejected prometheus.Counter
	batchGroups   prometheus.Histogram
}

func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	return registry
}

// New configures the domain metrics instruments.
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		cacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "propsight_cache_hits_total",
			Help: "Cache hits served without a provider call.",
		}, []string{"data_type"}),
		cacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "propsight_cache_misses_total",
			Help: "Requests that required a live provider call.",
		}, []string{"data_type"}),
		cacheStale: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "propsight_cache_stale_served_total",
			Help: "Degraded responses served from expired cache entries.",
		}, []string{"data_type"}),
		providerCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "propsight_provider_calls_total",
			Help: "Outbound provider calls by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		providerDur: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "propsight_provider_call_seconds",
			Help:    "Latency of outbound provider calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		creditsSpent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "propsight_credits_spent_total",
			Help: "API credits deducted from user quotas.",
		}, []string{"endpoint"}),
		quotaRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "propsight_quota_rejections_total",
			Help: "Deductions rejected for insufficient credits.",
		}),
		batchGroups: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "propsight_batch_postcode_groups",
			Help:    "Distinct postcode groups per batch analytics request.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		}),
	}
}

func (m *Metrics) IncCacheHit(dataType string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(dataType).Inc()
}

func (m *Metrics) IncCacheMiss(dataType string) {
	if m == nil {
		return
	}
	m.cacheMisses.WithLabelValues(dataType).Inc()
}

func (m *Metrics) IncStaleServed(dataType string) {
	if m == nil {
		return
	}
	m.cacheStale.WithLabelValues(dataType).Inc()
}

func (m *Metrics) ObserveProviderCall(endpoint, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.providerCalls.WithLabelValues(endpoint, outcome).Inc()
	m.providerDur.WithLabelValues(endpoint).Observe(seconds)
}

func (m *Metrics) AddCreditsSpent(endpoint string, credits int) {
	if m == nil {
		return
	}
	m.creditsSpent.WithLabelValues(endpoint).Add(float64(credits))
}

func (m *Metrics) IncQuotaRejected() {
	if m == nil {
		return
	}
	m.quotaRejected.Inc()
}

func (m *Metrics) ObserveBatchGroups(groups int) {
	if m == nil {
		return
	}
	m.batchGroups.Observe(float64(groups))
}
