package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for request budget tracking.
var (
	budgetRemaining = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "jsonpaginate_rate_limit_remaining",
		Help: "Requests remaining in the current API rate limit window",
	}, []string{"scope"})

	rateLimitBlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jsonpaginate_rate_limit_blocks_total",
		Help: "Total number of requests blocked due to an exhausted API budget",
	}, []string{"scope"})

	rateLimitThrottlesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jsonpaginate_rate_limit_throttles_total",
		Help: "Total number of requests throttled due to a low API budget",
	}, []string{"scope"})
)

// Default header names. Most APIs use the X-RateLimit-* family.
const (
	DefaultRemainingHeader = "X-RateLimit-Remaining"
	DefaultResetHeader     = "X-RateLimit-Reset"
)

// DefaultThrottleDelay is slept before each request in the warning band.
const DefaultThrottleDelay = 1 * time.Second

// DefaultStaleAfter is how long a recorded budget is trusted without a
// fresh response updating it.
const DefaultStaleAfter = 5 * time.Minute

// unixThreshold separates "seconds until reset" from absolute unix timestamps
// in reset headers.
const unixThreshold = 1_000_000_000

// Options configures a Tracker.
type Options struct {
	RemainingHeader string
	ResetHeader     string
	ThrottleDelay   time.Duration
	StaleAfter      time.Duration
}

// Tracker monitors API rate limit headers and gates requests.
type Tracker struct {
	store   Store
	logger  zerolog.Logger
	options Options
}

// NewTracker creates a tracker over store. A nil store keeps state in memory.
func NewTracker(store Store, logger zerolog.Logger, opts Options) *Tracker {
	if store == nil {
		store = NewMemoryStore()
	}
	if opts.RemainingHeader == "" {
		opts.RemainingHeader = DefaultRemainingHeader
	}
	if opts.ResetHeader == "" {
		opts.ResetHeader = DefaultResetHeader
	}
	if opts.ThrottleDelay <= 0 {
		opts.ThrottleDelay = DefaultThrottleDelay
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = DefaultStaleAfter
	}
	return &Tracker{
		store:   store,
		logger:  logger,
		options: opts,
	}
}

// GetState returns the budget for scope, or a healthy default when nothing
// was recorded or the record is older than StaleAfter.
func (t *Tracker) GetState(ctx context.Context, scope string) (*BudgetState, error) {
	state, err := t.store.Load(ctx, scope)
	if err != nil {
		return nil, err
	}
	if state == nil {
		t.logger.Debug().Str("scope", scope).Msg("No rate limit state recorded, assuming healthy budget")
		return defaultState(), nil
	}
	if state.IsStale(t.options.StaleAfter) {
		t.logger.Debug().
			Str("scope", scope).
			Time("last_update", state.LastUpdate).
			Msg("Rate limit state is stale, assuming healthy budget")
		return defaultState(), nil
	}
	return state, nil
}

// UpdateFromHeaders records the budget advertised by a response.
// Responses without the remaining header are ignored.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, scope string, headers http.Header) error {
	remainStr := headers.Get(t.options.RemainingHeader)
	if remainStr == "" {
		return nil
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", t.options.RemainingHeader, err)
	}

	resetStr := headers.Get(t.options.ResetHeader)
	if resetStr == "" {
		return fmt.Errorf("%s header missing", t.options.ResetHeader)
	}

	reset, err := strconv.ParseInt(resetStr, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", t.options.ResetHeader, err)
	}

	now := time.Now()
	state := &BudgetState{
		Remaining:  remain,
		ResetAt:    resetTime(now, reset),
		LastUpdate: now,
	}
	state.UpdateHealth()

	if err := t.store.Save(ctx, scope, state); err != nil {
		return err
	}

	budgetRemaining.WithLabelValues(scope).Set(float64(remain))

	switch {
	case state.NeedsCriticalBlock():
		t.logger.Error().
			Str("scope", scope).
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Msg("API rate limit CRITICAL - requests will be blocked")
	case state.NeedsThrottling():
		t.logger.Warn().
			Str("scope", scope).
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Msg("API rate limit WARNING - requests will be throttled")
	default:
		t.logger.Debug().
			Str("scope", scope).
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Bool("is_healthy", state.IsHealthy).
			Msg("API rate limit state updated")
	}

	return nil
}

func resetTime(now time.Time, v int64) time.Time {
	if v >= unixThreshold {
		return time.Unix(v, 0)
	}
	return now.Add(time.Duration(v) * time.Second)
}

// ShouldAllowRequest reports whether a request to scope may be sent.
// It returns false when the budget is exhausted, and sleeps ThrottleDelay
// before allowing requests in the warning band.
func (t *Tracker) ShouldAllowRequest(ctx context.Context, scope string) (bool, error) {
	state, err := t.GetState(ctx, scope)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Str("scope", scope).
			Int("remaining", state.Remaining).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("API rate limit critical - blocking request")
		rateLimitBlocksTotal.WithLabelValues(scope).Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Str("scope", scope).
			Int("remaining", state.Remaining).
			Msg("API rate limit warning - throttling request")
		rateLimitThrottlesTotal.WithLabelValues(scope).Inc()

		timer := time.NewTimer(t.options.ThrottleDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
		}
	}

	return true, nil
}
