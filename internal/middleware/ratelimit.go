package middleware

import (
	"sync"

	"golang.org/x/time/rate"
)

// Rate-limited action names. Each action has its own per-session budget so
// a burst of edits cannot starve uploads and vice versa.
const (
	ActionUpload  = "upload"
	ActionModify  = "contacts_modify"
	ActionAnalyze = "analyze"
	ActionMerge   = "merge"
)

// perMinute converts an events-per-minute budget to a rate.Limit.
func perMinute(n int) rate.Limit {
	return rate.Limit(float64(n) / 60.0)
}

// actionLimits holds the default per-minute budgets. Analysis is the most
// expensive operation, so it gets the tightest budget.
var actionLimits = map[string]struct {
	limit rate.Limit
	burst int
}{
	ActionUpload:  {perMinute(20), 20},
	ActionModify:  {perMinute(100), 100},
	ActionAnalyze: {perMinute(10), 10},
	ActionMerge:   {perMinute(50), 50},
}

// RateLimiter tracks a token bucket per (session, action) pair.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewRateLimiter creates an empty rate limiter registry.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{limiters: make(map[string]*rate.Limiter)}
}

// Allow reports whether the session may perform the action now. Actions
// without a configured budget are always allowed.
func (l *RateLimiter) Allow(sessionID, action string) bool {
	cfg, ok := actionLimits[action]
	if !ok {
		return true
	}

	l.mu.Lock()
	key := sessionID + ":" + action
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(cfg.limit, cfg.burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()

	return lim.Allow()
}
