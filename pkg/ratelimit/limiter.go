// Package ratelimit throttles tool invocations with per-tool token buckets.
package ratelimit

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/tuesdays-dev/mcp-stdio-server/pkg/models"
)

// Wildcard is the policy key applied to tools without a policy of their own.
const Wildcard = "*"

// ErrInvalidPolicy is returned by New for policies that can never admit a call.
var ErrInvalidPolicy = errors.New("invalid rate limit policy")

// Limiter holds one token bucket per policy. The set of buckets is fixed at
// construction, so lookups need no locking.
type Limiter struct {
	buckets map[string]*rate.Limiter
}

// New builds a Limiter from policies. A nil Limiter admits everything.
func New(policies []models.RateLimitPolicy) (*Limiter, error) {
	l := &Limiter{buckets: make(map[string]*rate.Limiter, len(policies))}
	for _, p := range policies {
		if p.Tool == "" {
			return nil, fmt.Errorf("%w: tool name required", ErrInvalidPolicy)
		}
		if p.RPS <= 0 {
			return nil, fmt.Errorf("%w: %s: rps must be positive", ErrInvalidPolicy, p.Tool)
		}
		burst := p.Burst
		if burst < 1 {
			burst = 1
		}
		if _, dup := l.buckets[p.Tool]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate policy", ErrInvalidPolicy, p.Tool)
		}
		l.buckets[p.Tool] = rate.NewLimiter(rate.Limit(p.RPS), burst)
	}
	return l, nil
}

// Wait blocks until tool may run or ctx is done.
func (l *Limiter) Wait(ctx context.Context, tool string) error {
	b := l.bucket(tool)
	if b == nil {
		return nil
	}
	if err := b.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit %s: %w", tool, err)
	}
	return nil
}

func (l *Limiter) bucket(tool string) *rate.Limiter {
	if l == nil {
		return nil
	}
	if b, ok := l.buckets[tool]; ok {
		return b
	}
	return l.buckets[Wildcard]
}
