package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// TokenLimiter budgets LLM tokens per minute.
type TokenLimiter struct {
	limiter *rate.Limiter
	burst   int
}

// NewTokenLimiter creates a limiter refilling tokensPerMinute every minute.
// A non-positive budget disables limiting.
func NewTokenLimiter(tokensPerMinute int) *TokenLimiter {
	if tokensPerMinute <= 0 {
		return &TokenLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	return &TokenLimiter{
		limiter: rate.NewLimiter(rate.Limit(float64(tokensPerMinute)/60.0), tokensPerMinute),
		burst:   tokensPerMinute,
	}
}

// Wait blocks until n tokens are available or ctx is done.
func (t *TokenLimiter) Wait(ctx context.Context, n int) error {
	if t.burst == 0 {
		return ctx.Err()
	}
	if n > t.burst {
		n = t.burst
	}
	return t.limiter.WaitN(ctx, n)
}

// GetRemaining returns the tokens currently available.
func (t *TokenLimiter) GetRemaining() int {
	if t.burst == 0 {
		return -1
	}
	return int(t.limiter.Tokens())
}
