package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rrn_masker_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rrn_masker_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Masking metrics
	maskRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rrn_masker_mask_requests_total",
			Help: "Total number of masking requests",
		},
		[]string{"status"}, // status: ok or an error code
	)

	maskProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rrn_masker_mask_processing_duration_seconds",
			Help:    "Masking pipeline duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 25, 50},
		},
	)

	matchesDetected = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rrn_masker_matches_detected",
			Help:    "Number of resident registration numbers masked per image",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 25},
		},
	)

	// File upload metrics
	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rrn_masker_upload_size_bytes",
			Help:    "Size of uploaded images in bytes",
			Buckets: []float64{10 * 1024, 100 * 1024, 512 * 1024, 1024 * 1024, 5 * 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024},
		},
	)
)
