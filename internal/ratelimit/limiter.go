// Package ratelimit provides per-source request throttling for external APIs.
//
// Each data source gets an independent token bucket so a burst against one
// provider cannot starve the others. Acquiring a slot blocks until the bucket
// refills or the context is cancelled; hitting a limit is never reported as a
// source failure.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"solana-revival-scanner/internal/source"
)

// Budget describes the token bucket for one source.
type Budget struct {
	RPS   float64 // sustained requests per second
	Burst int     // bucket capacity
}

// Limiter enforces independent token buckets keyed by source.
type Limiter struct {
	mu       sync.RWMutex
	limiters map[source.Source]*rate.Limiter
	budgets  map[source.Source]Budget
	fallback Budget
}

// NewLimiter creates a limiter with per-source budgets. Sources absent from
// the map fall back to the given default budget.
func NewLimiter(budgets map[source.Source]Budget, fallback Budget) *Limiter {
	copied := make(map[source.Source]Budget, len(budgets))
	for src, b := range budgets {
		copied[src] = b
	}
	return &Limiter{
		limiters: make(map[source.Source]*rate.Limiter),
		budgets:  copied,
		fallback: fallback,
	}
}

// getLimiter returns or creates the bucket for the specified source.
func (l *Limiter) getLimiter(src source.Source) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[src]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[src]; exists {
		return limiter
	}

	budget, ok := l.budgets[src]
	if !ok {
		budget = l.fallback
	}
	limiter = rate.NewLimiter(rate.Limit(budget.RPS), budget.Burst)
	l.limiters[src] = limiter
	return limiter
}

// Allow reports whether a request for the source may proceed immediately.
func (l *Limiter) Allow(src source.Source) bool {
	return l.getLimiter(src).Allow()
}

// Wait blocks until a request for the source is allowed or the context is
// cancelled. The only possible error is the context's.
func (l *Limiter) Wait(ctx context.Context, src source.Source) error {
	return l.getLimiter(src).Wait(ctx)
}

// Tokens returns the number of slots currently available for the source.
func (l *Limiter) Tokens(src source.Source) float64 {
	return l.getLimiter(src).Tokens()
}

// SetBudget replaces the budget for one source and rebuilds its bucket.
func (l *Limiter) SetBudget(src source.Source, budget Budget) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.budgets[src] = budget
	if limiter, exists := l.limiters[src]; exists {
		limiter.SetLimit(rate.Limit(budget.RPS))
		limiter.SetBurst(budget.Burst)
	}
}

// Reset clears all buckets; the next acquire recreates them at full capacity.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.limiters = make(map[source.Source]*rate.Limiter)
}
