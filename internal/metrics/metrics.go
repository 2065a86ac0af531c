package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "simpletex"

// Metrics exposes Prometheus collectors that report keyword extraction activity.
type Metrics struct {
	documents     *prometheus.CounterVec
	scoreDuration prometheus.Histogram
	keywords      prometheus.Histogram
	cacheRequests *prometheus.CounterVec
	cloudRenders  *prometheus.CounterVec
	fetchFailures *prometheus.CounterVec
}

// MustNewMetrics constructs a Metrics instance using the provided registerer.
// Tests should supply a fresh registry; registration errors panic.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		documents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "documents_scored_total",
				Help:      "Number of documents scored, by input source.",
			},
			[]string{"source"},
		),
		scoreDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "score_duration_seconds",
				Help:      "Time spent tokenizing and weighting a document.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
		),
		keywords: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "keywords_returned",
				Help:      "Number of keywords returned per document.",
				Buckets:   prometheus.LinearBuckets(0, 2, 6),
			},
		),
		cacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_requests_total",
				Help:      "Result cache lookups, by outcome.",
			},
			[]string{"result"},
		),
		cloudRenders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cloud_renders_total",
				Help:      "Word cloud render attempts, by renderer and status.",
			},
			[]string{"renderer", "status"},
		),
		fetchFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_failures_total",
				Help:      "Failed page fetches, by reason.",
			},
			[]string{"reason"},
		),
	}

	reg.MustRegister(m.documents, m.scoreDuration, m.keywords, m.cacheRequests, m.cloudRenders, m.fetchFailures)
	return m
}

// ObserveScore records one scored document. Safe on a nil receiver.
func (m *Metrics) ObserveScore(source string, took time.Duration, keywords int) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(source).Inc()
	m.scoreDuration.Observe(took.Seconds())
	m.keywords.Observe(float64(keywords))
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues("hit").Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues("miss").Inc()
}

// ObserveRender records a cloud render with status "ok", "unavailable" or "error".
func (m *Metrics) ObserveRender(renderer, status string) {
	if m == nil {
		return
	}
	m.cloudRenders.WithLabelValues(renderer, status).Inc()
}

func (m *Metrics) FetchFailed(reason string) {
	if m == nil {
		return
	}
	m.fetchFailures.WithLabelValues(reason).Inc()
}
