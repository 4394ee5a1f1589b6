package ai

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/diarymem/internal/core/domain"
)

// DefaultCooldown is how long all calls pause after a provider returns 429.
const DefaultCooldown = 10 * time.Second

// RateLimitConfig holds rate limiting configuration for a provider.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size.
	BurstSize int
	// Cooldown is the pause after a rate limit response (default: 10s).
	Cooldown time.Duration
}

// RateLimitConfigFromSettings converts user settings to a limiter config.
func RateLimitConfigFromSettings(s domain.RateLimitSettings) RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: s.RequestsPerSecond,
		BurstSize:         s.Burst,
	}
}

// RateLimiter bounds outbound provider requests.
// It uses a token bucket with a shared cooldown after 429 responses.
type RateLimiter struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	retryAt  time.Time
	cooldown time.Duration
}

// NewRateLimiter creates a rate limiter with the given configuration.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}

	return &RateLimiter{
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		cooldown: cfg.Cooldown,
	}
}

// Wait blocks until a request can be made without exceeding the rate limit.
// It also respects any cooldown set by RecordRateLimitError.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if wait := time.Until(retryAt); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.limiter.Wait(ctx)
}

// RecordRateLimitError starts a cooldown. A zero retryAfter uses the
// configured cooldown.
func (r *RateLimiter) RecordRateLimitError(retryAfter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if retryAfter <= 0 {
		retryAfter = r.cooldown
	}
	if until := time.Now().Add(retryAfter); until.After(r.retryAt) {
		r.retryAt = until
	}
}
