// Package provider implements the rate-limited HTTP client for the upstream
// financial-data APIs, the adaptive concurrency controller shared across a
// run, and the per-provider response normalizers.
package provider

import (
	"sync"
	"time"
)

// AdaptiveConfig bounds and tunes an AdaptiveController. Zero fields take
// the defaults below.
type AdaptiveConfig struct {
	MinConcurrency     int
	MaxConcurrency     int
	StartConcurrency   int
	SuccessThreshold   int // consecutive successes before raising concurrency
	RateLimitThreshold int // consecutive 429/403s before lowering concurrency
	BaseBackoff        time.Duration
	MaxBackoff         time.Duration
}

func (c *AdaptiveConfig) applyDefaults() {
	if c.MinConcurrency <= 0 {
		c.MinConcurrency = 1
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 10
	}
	if c.StartConcurrency <= 0 {
		c.StartConcurrency = 5
	}
	if c.StartConcurrency < c.MinConcurrency {
		c.StartConcurrency = c.MinConcurrency
	}
	if c.StartConcurrency > c.MaxConcurrency {
		c.StartConcurrency = c.MaxConcurrency
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 30
	}
	if c.RateLimitThreshold <= 0 {
		c.RateLimitThreshold = 5
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 2 * time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 2 * time.Minute
	}
}

// AdaptiveController owns the run-wide concurrency level and backoff delay.
// It is an explicit instance passed by handle to its users, so independent
// importer runs never share counters. All methods are safe for concurrent
// use.
type AdaptiveController struct {
	mu  sync.Mutex
	cfg AdaptiveConfig

	level           int
	successStreak   int
	rateLimitStreak int
	backoff         time.Duration
	lastRateLimit   time.Time

	now func() time.Time
}

// NewAdaptiveController creates a controller starting at cfg.StartConcurrency
// with the base backoff.
func NewAdaptiveController(cfg AdaptiveConfig) *AdaptiveController {
	cfg.applyDefaults()
	return &AdaptiveController{
		cfg:     cfg,
		level:   cfg.StartConcurrency,
		backoff: cfg.BaseBackoff,
		now:     time.Now,
	}
}

// Concurrency returns the current concurrency level.
func (a *AdaptiveController) Concurrency() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.level
}

// Backoff returns the current retry backoff delay.
func (a *AdaptiveController) Backoff() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.backoff
}

// RecordSuccess notes a successful upstream request. Crossing the success
// streak threshold raises concurrency one step (up to the ceiling) and
// resets the streak; the backoff decays back toward its base.
func (a *AdaptiveController) RecordSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.successStreak++
	a.rateLimitStreak = 0

	if a.backoff > a.cfg.BaseBackoff {
		a.backoff /= 2
		if a.backoff < a.cfg.BaseBackoff {
			a.backoff = a.cfg.BaseBackoff
		}
	}

	if a.successStreak >= a.cfg.SuccessThreshold && a.level < a.cfg.MaxConcurrency {
		a.level++
		a.successStreak = 0
	}
}

// RecordRateLimit notes an upstream 429/403. The backoff grows
// multiplicatively up to the cap; crossing the rate-limit streak threshold
// lowers concurrency one step, never below the floor.
func (a *AdaptiveController) RecordRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.rateLimitStreak++
	a.successStreak = 0
	a.lastRateLimit = a.now()

	a.backoff *= 2
	if a.backoff > a.cfg.MaxBackoff {
		a.backoff = a.cfg.MaxBackoff
	}

	if a.rateLimitStreak >= a.cfg.RateLimitThreshold && a.level > a.cfg.MinConcurrency {
		a.level--
		a.rateLimitStreak = 0
	}
}

// RateLimitedWithin reports whether any rate-limit response was recorded in
// the last d.
func (a *AdaptiveController) RateLimitedWithin(d time.Duration) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastRateLimit.IsZero() {
		return false
	}
	return a.now().Sub(a.lastRateLimit) <= d
}
