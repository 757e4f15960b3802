// Package metrics exposes Prometheus counters for the routing layer.
//
// Counters are package-level and registered once into Registry. Recording
// functions are safe to call before Register; unregistered counters still
// count but are not gathered.
package metrics

import (
	"fmt"
	"io"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const namespace = "nature"

// Cache names used as the "cache" label.
const (
	CacheMeta     = "meta"
	CacheRelation = "relation"
)

// Cache lookup results used as the "result" label.
const (
	ResultHit  = "hit"
	ResultMiss = "miss"
)

// Mission outcomes used as the "outcome" label.
const (
	OutcomeResolved    = "resolved"
	OutcomeFiltered    = "filtered"
	OutcomeDelayFailed = "delay_failed"
)

var (
	cacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Count of cache lookups by cache and result.",
		},
		[]string{"cache", "result"},
	)
	originErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_origin_errors_total",
			Help:      "Count of origin fetches that failed and were not cached.",
		},
		[]string{"cache"},
	)
	relationsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relations_skipped_total",
			Help:      "Count of relation rows skipped while loading, by error kind.",
		},
		[]string{"reason"},
	)
	missions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "missions_total",
			Help:      "Count of relations evaluated during mission resolution, by outcome.",
		},
		[]string{"outcome"},
	)
)

// Registry holds every routing-layer collector once Register has run.
var Registry = prometheus.NewRegistry()

var registerMetrics sync.Once

// Register all metrics.
func Register() {
	registerMetrics.Do(func() {
		Registry.MustRegister(cacheRequests)
		Registry.MustRegister(originErrors)
		Registry.MustRegister(relationsSkipped)
		Registry.MustRegister(missions)
	})
}

// RecordCacheRequest records one lookup against cache with result hit or miss.
func RecordCacheRequest(cache, result string) {
	cacheRequests.WithLabelValues(cache, result).Inc()
}

// RecordOriginError records a failed origin fetch for cache.
func RecordOriginError(cache string) {
	originErrors.WithLabelValues(cache).Inc()
}

// RecordRelationSkipped records a relation row dropped during loading.
func RecordRelationSkipped(reason string) {
	relationsSkipped.WithLabelValues(reason).Inc()
}

// RecordMission records the outcome of evaluating one relation for an instance.
func RecordMission(outcome string) {
	missions.WithLabelValues(outcome).Inc()
}

// Gather returns the current metric families of Registry.
func Gather() ([]*dto.MetricFamily, error) {
	families, err := Registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}
	return families, nil
}

// Totals sums every counter family across its label values, keyed by
// family name.
func Totals() (map[string]float64, error) {
	families, err := Gather()
	if err != nil {
		return nil, err
	}
	totals := make(map[string]float64, len(families))
	for _, mf := range families {
		if mf.GetType() != dto.MetricType_COUNTER {
			continue
		}
		var sum float64
		for _, m := range mf.GetMetric() {
			sum += m.GetCounter().GetValue()
		}
		totals[mf.GetName()] = sum
	}
	return totals, nil
}

// WriteText gathers Registry and writes it in the Prometheus text format.
func WriteText(w io.Writer) error {
	families, err := Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
