// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recommendations
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_recommendations_total",
			Help: "Recommendation requests by outcome",
		},
		[]string{"outcome"}, // "ok", "invalid", "unavailable", "canceled", "error"
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "concierge_recommendation_duration_seconds",
			Help:    "End-to-end evaluation latency",
			Buckets: prometheus.DefBuckets,
		},
	)

	CandidatesRetrieved = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "concierge_candidates_retrieved",
			Help:    "Candidates returned by the repository per query",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	CandidatesFiltered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_candidates_filtered_total",
			Help: "Candidates dropped by a hard filter",
		},
		[]string{"filter"},
	)

	CriterionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_criterion_failures_total",
			Help: "Criterion evaluations that failed and excluded a candidate",
		},
		[]string{"criterion"},
	)

	// Repository
	RepositoryRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_repository_requests_total",
			Help: "Repository fetches by result",
		},
		[]string{"result"}, // "success", "failure", "timeout", "rejected"
	)

	RepositoryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "concierge_repository_duration_seconds",
			Help:    "Repository fetch latency",
			Buckets: prometheus.DefBuckets,
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "concierge_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Cache
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "concierge_candidate_cache_hits_total",
			Help: "Candidate cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "concierge_candidate_cache_misses_total",
			Help: "Candidate cache misses, including expired entries",
		},
	)

	// Event bus
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_events_published_total",
			Help: "Events published to the message bus by result",
		},
		[]string{"result"},
	)
)
