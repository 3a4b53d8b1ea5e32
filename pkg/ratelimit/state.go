// Package ratelimit tracks the request budget an API advertises through its
// rate limit response headers and gates outgoing page requests on it.
// State lives in a Store so several paginator processes hitting the same
// API host can share one budget through Redis.
package ratelimit

import (
	"time"
)

// KeyPrefix namespaces budget state in Redis. The API host is appended.
const KeyPrefix = "jsonpagination:rate_limit:"

// Thresholds for request gating, in remaining requests.
const (
	// ThresholdCritical blocks requests while fewer requests remain.
	ThresholdCritical = 5

	// ThresholdWarning throttles requests while fewer requests remain.
	ThresholdWarning = 20

	// ThresholdHealthy marks the budget as healthy at or above this value.
	ThresholdHealthy = 50
)

// BudgetState is the last observed request budget for one API host.
type BudgetState struct {
	// Remaining is the number of requests the API still accepts in the current window.
	Remaining int `json:"remaining"`

	// ResetAt is when the window resets.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when the state was recorded.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when Remaining >= ThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// defaultState is assumed until an API reports its budget.
func defaultState() *BudgetState {
	now := time.Now()
	return &BudgetState{
		Remaining:  100,
		ResetAt:    now.Add(60 * time.Second),
		LastUpdate: now,
		IsHealthy:  true,
	}
}

// IsStale returns true if the state is older than maxAge.
func (s *BudgetState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// Expired reports whether the window the state describes has already reset.
func (s *BudgetState) Expired() bool {
	return !s.ResetAt.IsZero() && time.Now().After(s.ResetAt)
}

// NeedsCriticalBlock returns true if requests must be blocked.
func (s *BudgetState) NeedsCriticalBlock() bool {
	return s.Remaining < ThresholdCritical && !s.Expired()
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *BudgetState) NeedsThrottling() bool {
	return s.Remaining < ThresholdWarning && !s.Expired() && !s.NeedsCriticalBlock()
}

// TimeUntilReset returns the duration until the window resets, or 0.
func (s *BudgetState) TimeUntilReset() time.Duration {
	d := time.Until(s.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}

// UpdateHealth recomputes IsHealthy from Remaining.
func (s *BudgetState) UpdateHealth() {
	s.IsHealthy = s.Remaining >= ThresholdHealthy
}
