package ratelimit

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

const resetPeriod = 24 * time.Hour

// Budget caps daily requests per named provider (translation backends with
// free-tier quotas). A limit of 0, or a provider without a limit, is unlimited.
type Budget struct {
	mu        sync.Mutex
	limits    map[string]int
	counts    map[string]int
	warned    map[string]bool
	resetTime time.Time
	now       func() time.Time
	log       *slog.Logger
}

// NewBudget creates a budget that resets every 24h.
func NewBudget(limits map[string]int, log *slog.Logger) *Budget {
	b := &Budget{
		limits: make(map[string]int, len(limits)),
		counts: make(map[string]int),
		warned: make(map[string]bool),
		now:    time.Now,
		log:    log,
	}
	for name, n := range limits {
		b.limits[name] = n
	}
	b.resetTime = b.now().Add(resetPeriod)
	return b
}

// Allow reports whether provider still has budget left. Exhaustion is
// logged once per reset period.
func (b *Budget) Allow(provider string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()

	limit := b.limits[provider]
	if limit > 0 && b.counts[provider] >= limit {
		if !b.warned[provider] {
			b.warned[provider] = true
			b.log.Warn("provider budget exhausted", "provider", provider, "used", b.counts[provider], "limit", limit, "reset_time", b.resetTime)
		}
		return false
	}
	return true
}

// Use consumes one request of provider's budget.
func (b *Budget) Use(provider string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()

	limit := b.limits[provider]
	if limit > 0 && b.counts[provider] >= limit {
		return fmt.Errorf("%s rate limit exceeded", provider)
	}
	b.counts[provider]++
	b.log.Debug("provider usage", "provider", provider, "used", b.counts[provider], "limit", limit)
	return nil
}

// Stats returns used/limit per provider plus the next reset time.
func (b *Budget) Stats() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	names := make([]string, 0, len(b.limits)+len(b.counts))
	seen := map[string]bool{}
	for n := range b.limits {
		names, seen[n] = append(names, n), true
	}
	for n := range b.counts {
		if !seen[n] {
			names = append(names, n)
		}
	}
	sort.Strings(names)

	stats := map[string]interface{}{"reset_time": b.resetTime}
	for _, n := range names {
		stats[n+"_used"] = b.counts[n]
		stats[n+"_limit"] = b.limits[n]
	}
	return stats
}

// checkReset resets counters if reset time has passed. Caller holds mu.
func (b *Budget) checkReset() {
	if b.now().After(b.resetTime) {
		b.log.Info("resetting provider budgets")
		b.counts = make(map[string]int)
		b.warned = make(map[string]bool)
		b.resetTime = b.now().Add(resetPeriod)
	}
}
