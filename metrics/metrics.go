// Package metrics provides Prometheus metrics for the MAST MCP server.
// It tracks tool calls, upstream archive calls, cache use and the HTTP transport.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const (
	Namespace = "mast_mcp"
)

var (
	// RequestsTotal counts total MCP tool calls by tool name and status
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "requests_total",
		Help:      "Total number of MCP tool calls",
	}, []string{"tool", "status"})

	// RequestDuration measures tool latency
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "request_duration_seconds",
		Help:      "Tool call latency distribution by tool",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"tool"})

	// RequestInFlight tracks currently executing tool calls
	RequestInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "requests_in_flight",
		Help:      "Number of tool calls currently being processed",
	}, []string{"tool"})

	// PanicsRecovered counts recovered panics
	PanicsRecovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "panics_recovered_total",
		Help:      "Number of panics recovered in tool handlers and HTTP requests",
	}, []string{"tool"})

	// UpstreamLatency measures archive API latency
	UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "upstream_latency_seconds",
		Help:      "Upstream archive call latency by upstream and service",
		Buckets:   prometheus.DefBuckets,
	}, []string{"upstream", "service"})

	// UpstreamRequestsTotal counts archive API requests
	UpstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "upstream_requests_total",
		Help:      "Total upstream archive requests by upstream, service and status",
	}, []string{"upstream", "service", "status"})

	// UpstreamErrors counts archive API errors by HTTP status code
	UpstreamErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "upstream_errors_total",
		Help:      "Upstream archive errors by upstream, service and error code",
	}, []string{"upstream", "service", "error_code"})

	// UpstreamRetries counts upstream retries
	UpstreamRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "upstream_retries_total",
		Help:      "Upstream retry count by upstream and service",
	}, []string{"upstream", "service"})

	// CacheHits counts response cache hits
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "cache_hits_total",
		Help:      "Total response cache hit count",
	})

	// CacheMisses counts response cache misses
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "cache_misses_total",
		Help:      "Total response cache miss count",
	})

	// CoalescedRequests counts requests served by an identical in-flight call
	CoalescedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "coalesced_requests_total",
		Help:      "Upstream requests answered by an identical in-flight request",
	}, []string{"upstream"})

	// RateLimitRejections counts HTTP requests rejected by the per-client limiter
	RateLimitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "rate_limit_rejections_total",
		Help:      "Requests rejected due to rate limiting",
	})

	// RateLimitWaits counts upstream calls that waited for a concurrency slot
	RateLimitWaits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "rate_limit_waits_total",
		Help:      "Upstream calls that waited for the concurrency semaphore",
	})

	// HTTPRequestsTotal counts HTTP transport requests
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method and status",
	}, []string{"method", "status"})

	// HTTPRequestDuration measures HTTP request latency
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency distribution",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path"})

	// ResultRows tracks how many rows archive queries return
	ResultRows = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "result_rows",
		Help:      "Rows returned by archive queries",
		Buckets:   []float64{0, 1, 10, 100, 1000, 10000, 100000},
	}, []string{"service"})
)

// RecordRequest records a completed tool call with its duration and status
func RecordRequest(tool string, duration float64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	RequestsTotal.WithLabelValues(tool, status).Inc()
	RequestDuration.WithLabelValues(tool).Observe(duration)
}

// RecordAPICall records an upstream archive call. statusCode is the HTTP
// status, or 0 when the request never got a response.
func RecordAPICall(upstream, service string, duration float64, success bool, statusCode int) {
	status := "success"
	if !success {
		status = "error"
	}
	UpstreamRequestsTotal.WithLabelValues(upstream, service, status).Inc()
	UpstreamLatency.WithLabelValues(upstream, service).Observe(duration)
	if !success {
		code := "transport"
		if statusCode > 0 {
			code = strconv.Itoa(statusCode)
		}
		UpstreamErrors.WithLabelValues(upstream, service, code).Inc()
	}
}

// RecordRetry records a retried upstream call
func RecordRetry(upstream, service string) {
	UpstreamRetries.WithLabelValues(upstream, service).Inc()
}

// RecordCacheAccess records a cache hit or miss
func RecordCacheAccess(hit bool) {
	if hit {
		CacheHits.Inc()
	} else {
		CacheMisses.Inc()
	}
}

// RecordHTTPRequest records a request served by the HTTP transport
func RecordHTTPRequest(method, path string, status int, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordResultRows records the size of an archive result
func RecordResultRows(service string, rows int) {
	ResultRows.WithLabelValues(service).Observe(float64(rows))
}
