package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UIPagesServed counts Swagger UI pages by the parameter that selected
	// the document ("configUrl", "url" or "default").
	UIPagesServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docsgate_ui_pages_total",
			Help: "Total number of Swagger UI pages served",
		},
		[]string{"source"},
	)

	// SpecFetches counts upstream spec fetches by result.
	SpecFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docsgate_spec_fetches_total",
			Help: "Total number of upstream spec fetches",
		},
		[]string{"status"},
	)

	// SpecFetchDuration tracks upstream spec fetch latency.
	SpecFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docsgate_spec_fetch_duration_seconds",
			Help:    "Upstream spec fetch duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	// SpecCache counts spec cache lookups by backend and result.
	SpecCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docsgate_spec_cache_total",
			Help: "Spec cache lookups",
		},
		[]string{"backend", "result"},
	)

	// SpecRewrites counts rewritten specs by document kind.
	SpecRewrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docsgate_spec_rewrites_total",
			Help: "Total number of rewritten upstream specs",
		},
		[]string{"kind", "status"},
	)

	// SpecMerges counts external spec merges into the gateway document.
	SpecMerges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docsgate_spec_merges_total",
			Help: "Total number of external spec merges",
		},
		[]string{"status"},
	)

	// RelayRequests counts relayed requests by upstream status code.
	RelayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docsgate_relay_requests_total",
			Help: "Total number of relayed requests",
		},
		[]string{"method", "status"},
	)

	// RelayDuration tracks time to upstream response headers.
	RelayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docsgate_relay_duration_seconds",
			Help:    "Relayed request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method"},
	)

	// HTTPRequests counts total HTTP requests.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docsgate_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPDuration tracks HTTP request duration.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docsgate_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)
)
