// Package telemetry exposes Prometheus collectors for ingestion,
// attribution and CRM sync. Collectors register with the default registry
// once, at package init.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "utmlens"

var (
	TouchpointsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "touchpoints_ingested_total",
			Help:      "Touchpoints stored, by resolved channel",
		},
		[]string{"channel"},
	)

	AttributionEventsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attribution_events_created_total",
			Help:      "Attribution events written, by model",
		},
		[]string{"model"},
	)

	CRMSyncs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crm_syncs_total",
			Help:      "CRM contact syncs, by outcome",
		},
		[]string{"status"},
	)

	CRMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "crm_request_duration_seconds",
			Help:      "Latency of CRM API calls",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"status"},
	)
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
