// Package metrics holds the Prometheus instruments for the settlement engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ProjectsFunded    prometheus.Counter
	MovementsCreated  prometheus.Counter
	MovementsReleased prometheus.Counter
	MovementsReturned prometheus.Counter
	MovementsRejected prometheus.Counter
	AccordsProposed   prometheus.Counter
	AccordsBreached   prometheus.Counter
	PenaltyCollected  prometheus.Counter
	FeesCollected     prometheus.Counter
	RequestDuration   *prometheus.HistogramVec
}

// New registers all instruments on the default registerer.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers all instruments on reg; tests pass a fresh registry.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ProjectsFunded: factory.NewCounter(prometheus.CounterOpts{
			Name: "bondly_projects_funded_total",
			Help: "Total number of project funding events.",
		}),
		MovementsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "bondly_movements_created_total",
			Help: "Total number of movements proposed.",
		}),
		MovementsReleased: factory.NewCounter(prometheus.CounterOpts{
			Name: "bondly_movements_released_total",
			Help: "Total number of movements finalized as released.",
		}),
		MovementsReturned: factory.NewCounter(prometheus.CounterOpts{
			Name: "bondly_movements_returned_total",
			Help: "Total number of movements finalized as returned.",
		}),
		MovementsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "bondly_movements_rejected_once_total",
			Help: "Total number of first rejections awaiting a second reviewer.",
		}),
		AccordsProposed: factory.NewCounter(prometheus.CounterOpts{
			Name: "bondly_accords_proposed_total",
			Help: "Total number of accords proposed.",
		}),
		AccordsBreached: factory.NewCounter(prometheus.CounterOpts{
			Name: "bondly_accords_breached_total",
			Help: "Total number of accord breaches recorded.",
		}),
		PenaltyCollected: factory.NewCounter(prometheus.CounterOpts{
			Name: "bondly_penalty_collected_units_total",
			Help: "Total penalty proceeds routed to the treasury, in smallest currency units.",
		}),
		FeesCollected: factory.NewCounter(prometheus.CounterOpts{
			Name: "bondly_property_fees_collected_units_total",
			Help: "Total property fee shares retained when accords settle, in smallest currency units.",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bondly_http_request_duration_seconds",
			Help:    "HTTP request latency by route and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}
