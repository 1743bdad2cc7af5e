package obs

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuoteTotal counts price calculations by outcome.
	QuoteTotal *prometheus.CounterVec
	// QuoteDuration records calculation latency in milliseconds.
	QuoteDuration prometheus.Histogram
	// RuleRevisionConflicts counts optimistic concurrency conflicts on profile rule sets.
	RuleRevisionConflicts prometheus.Counter
	// RuleRevisionTotal counts committed or abandoned rule revisions.
	RuleRevisionTotal *prometheus.CounterVec
	// BulkApplyTotal counts bulk rule applications by mode and outcome.
	BulkApplyTotal *prometheus.CounterVec
	// CacheLookups counts cache reads by cache name and hit/miss.
	CacheLookups *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuoteTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_total",
			Help:      "Count of price calculations by outcome.",
		}, []string{"result"})
		QuoteDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quote_duration_ms",
			Help:      "Latency of price calculations in milliseconds.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		})
		RuleRevisionConflicts = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_revision_conflicts_total",
			Help:      "Number of rule revisions retried after a version conflict.",
		})
		RuleRevisionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_revision_total",
			Help:      "Count of rule revisions by outcome.",
		}, []string{"result"})
		BulkApplyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_apply_total",
			Help:      "Count of bulk rule applications by mode and outcome.",
		}, []string{"mode", "result"})
		CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Count of cache reads by cache and result.",
		}, []string{"cache", "result"})

		QuoteTotal = register(reg, QuoteTotal)
		QuoteDuration = register(reg, QuoteDuration)
		RuleRevisionConflicts = register(reg, RuleRevisionConflicts)
		RuleRevisionTotal = register(reg, RuleRevisionTotal)
		BulkApplyTotal = register(reg, BulkApplyTotal)
		CacheLookups = register(reg, CacheLookups)
	})
}

// ObserveQuote records one calculation. Safe to call before registration.
func ObserveQuote(result string, elapsed time.Duration) {
	if QuoteTotal != nil {
		QuoteTotal.WithLabelValues(result).Inc()
	}
	if QuoteDuration != nil {
		QuoteDuration.Observe(DurationMillis(elapsed))
	}
}

// ObserveRevision records a rule revision outcome; conflicts also bump RuleRevisionConflicts.
func ObserveRevision(result string) {
	if RuleRevisionTotal != nil {
		RuleRevisionTotal.WithLabelValues(result).Inc()
	}
	if result == "conflict" && RuleRevisionConflicts != nil {
		RuleRevisionConflicts.Inc()
	}
}

// ObserveBulkApply records a bulk application outcome.
func ObserveBulkApply(mode, result string) {
	if BulkApplyTotal != nil {
		BulkApplyTotal.WithLabelValues(mode, result).Inc()
	}
}

// ObserveCache records a cache lookup.
func ObserveCache(cache string, hit bool) {
	if CacheLookups == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(cache, result).Inc()
}
