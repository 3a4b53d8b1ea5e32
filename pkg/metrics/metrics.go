// Package metrics exposes the Prometheus registry used by jsonpagination.
// All metrics are defined in their respective packages (paginator, transport,
// ratelimit) via promauto to keep the packages independent.
//
// This package provides the scrape handler and documents every metric.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer every package registers its metrics with.
var Registry = prometheus.DefaultRegisterer

// Gatherer is read by Handler.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// Handler serves Gatherer in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Paginator Metrics (pkg/paginator):
//   - jsonpaginate_page_fetches_total{kind} (Counter): Page fetch outcomes (success, auth_error, network_error, parse_error)
//   - jsonpaginate_page_fetch_duration_seconds (Histogram): Page fetch duration
//   - jsonpaginate_pages_in_flight (Gauge): Page fetches currently running
//   - jsonpaginate_outcomes_discarded_total (Counter): Outcomes dropped after a run failed
//   - jsonpaginate_logins_total{result} (Counter): Login exchanges by result
//   - jsonpaginate_runs_total{state} (Counter): Finished runs by final state (done, failed)
//   - jsonpaginate_records_downloaded_total (Counter): Records returned by successful runs
//
// Request Metrics (pkg/transport):
//   - jsonpaginate_http_requests_total{host, method, status} (Counter): Requests by host and HTTP status
//   - jsonpaginate_http_request_duration_seconds{host} (Histogram): Request duration by host
//   - jsonpaginate_http_errors_total{class} (Counter): Errors by class (client, auth, server, rate_limit, network)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - jsonpaginate_rate_limit_remaining{scope} (Gauge): Requests remaining in the API's window
//   - jsonpaginate_rate_limit_blocks_total{scope} (Counter): Requests blocked at the critical threshold
//   - jsonpaginate_rate_limit_throttles_total{scope} (Counter): Requests delayed at the warning threshold
//
// Example Prometheus Queries:
//
//   # Page failure ratio
//   sum(rate(jsonpaginate_page_fetches_total{kind!="success"}[5m])) /
//   sum(rate(jsonpaginate_page_fetches_total[5m]))
//
//   # Budget running low
//   jsonpaginate_rate_limit_remaining < 20
//
//   # P95 page latency
//   histogram_quantile(0.95, rate(jsonpaginate_page_fetch_duration_seconds_bucket[5m]))
