package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Sternrassler/jsonpagination/pkg/ratelimit"
)

// Prometheus metrics for HTTP requests.
var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jsonpaginate_http_requests_total",
		Help: "Total HTTP requests by host, method and status",
	}, []string{"host", "method", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jsonpaginate_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds by host",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"host"})

	httpErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jsonpaginate_http_errors_total",
		Help: "Total HTTP errors by class",
	}, []string{"class"})
)

// Config holds the HTTP transport configuration.
type Config struct {
	// Timeout bounds each request, including reading the body.
	Timeout time.Duration

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool

	// UserAgent is sent with every request when set.
	UserAgent string

	// RateLimit is the number of requests allowed per RatePeriod. 0 disables pacing.
	RateLimit  int
	RatePeriod time.Duration

	// Tracker gates requests on the API's advertised budget. Optional.
	Tracker *ratelimit.Tracker

	// HTTPClient replaces the default client (for testing). Timeout and
	// InsecureSkipVerify are ignored when set.
	HTTPClient *http.Client
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:    60 * time.Second,
		UserAgent:  "jsonpagination/0.1.0",
		RatePeriod: time.Second,
	}
}

// HTTPTransport implements Transport on net/http.
type HTTPTransport struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	tracker    *ratelimit.Tracker
	config     Config
	logger     zerolog.Logger
}

// NewHTTP creates an HTTP transport.
func NewHTTP(cfg Config, logger zerolog.Logger) (*HTTPTransport, error) {
	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("rate_limit must be >= 0 (got %d)", cfg.RateLimit)
	}
	if cfg.RateLimit > 0 && cfg.RatePeriod <= 0 {
		return nil, fmt.Errorf("rate_period must be > 0 when rate_limit is set")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.InsecureSkipVerify {
			tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in
			logger.Debug().Msg("TLS certificate verification disabled")
		}
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: tr,
		}
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		// Burst of one spaces requests evenly, so no window of RatePeriod
		// ever sees more than RateLimit requests.
		every := cfg.RatePeriod / time.Duration(cfg.RateLimit)
		limiter = rate.NewLimiter(rate.Every(every), 1)
	}

	return &HTTPTransport{
		httpClient: httpClient,
		limiter:    limiter,
		tracker:    cfg.Tracker,
		config:     cfg,
		logger:     logger,
	}, nil
}

// Do implements Transport.
func (t *HTTPTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	host := u.Host

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	if t.tracker != nil {
		allowed, err := t.tracker.ShouldAllowRequest(ctx, host)
		if err != nil {
			t.logger.Error().Err(err).Msg("Rate limit check failed")
			return nil, fmt.Errorf("rate limit check: %w", err)
		}
		if !allowed {
			httpRequestsTotal.WithLabelValues(host, req.Method, "blocked").Inc()
			return nil, ErrRequestBlocked
		}
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	if t.config.UserAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", t.config.UserAgent)
	}

	start := time.Now()
	defer func() {
		httpRequestDuration.WithLabelValues(host).Observe(time.Since(start).Seconds())
	}()

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		httpErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		httpRequestsTotal.WithLabelValues(host, req.Method, "network_error").Inc()
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		httpErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if t.tracker != nil {
		if err := t.tracker.UpdateFromHeaders(ctx, host, resp.Header); err != nil {
			t.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}
	}

	httpRequestsTotal.WithLabelValues(host, req.Method, strconv.Itoa(resp.StatusCode)).Inc()
	if class := Classify(resp.StatusCode, nil); class != "" {
		httpErrorsTotal.WithLabelValues(string(class)).Inc()
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}
