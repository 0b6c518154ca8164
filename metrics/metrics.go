package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optimus_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "optimus_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// Import metrics
	ImportRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optimus_import_rows_total",
			Help: "CSV rows seen by the importer",
		},
		[]string{"outcome"}, // "processed", "skipped" or "failed"
	)

	ImportBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optimus_import_batches_total",
			Help: "Property batches committed",
		},
		[]string{"result"}, // "ok" or "error"
	)

	ImportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "optimus_import_duration_seconds",
			Help:    "End-to-end duration of one import",
			Buckets: []float64{.05, .1, .5, 1, 5, 10, 30, 60, 120},
		},
	)

	Imports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optimus_imports_total",
			Help: "Imports run",
		},
		[]string{"result"},
	)

	// Listing enrichment
	EnrichedListings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optimus_enriched_listings_total",
			Help: "Listing pages visited to fill missing fields",
		},
		[]string{"result"},
	)

	// Conversation intelligence
	IntelTagsAdded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optimus_intel_tags_added_total",
			Help: "Tags added to leads by the conversation reactor",
		},
		[]string{"tag"},
	)

	ReactorEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optimus_reactor_events_total",
			Help: "Lead changes seen by the conversation reactor",
		},
		[]string{"outcome"}, // "noop", "tagged" or "error"
	)
)
