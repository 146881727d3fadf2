package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenLimiter enforces a per-minute token budget for AI providers.
// Spent tokens are returned to the budget one minute after use.
type TokenLimiter struct {
	mu        sync.Mutex
	limit     int
	remaining int
	pending   []expiry
}

type expiry struct {
	tokens int
	at     time.Time
}

// NewTokenLimiter creates a limiter with the given tokens-per-minute budget.
func NewTokenLimiter(limit int) *TokenLimiter {
	return &TokenLimiter{limit: limit, remaining: limit}
}

// Wait blocks until the given number of tokens is available or ctx is done.
func (l *TokenLimiter) Wait(ctx context.Context, tokens int) error {
	if tokens > l.limit {
		tokens = l.limit
	}
	for {
		l.mu.Lock()
		l.reclaim()
		if l.remaining >= tokens {
			l.remaining -= tokens
			l.pending = append(l.pending, expiry{tokens: tokens, at: time.Now().Add(time.Minute)})
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// GetRemaining returns the number of tokens currently available.
func (l *TokenLimiter) GetRemaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reclaim()
	return l.remaining
}

func (l *TokenLimiter) reclaim() {
	now := time.Now()
	kept := l.pending[:0]
	for _, p := range l.pending {
		if now.After(p.at) {
			l.remaining += p.tokens
		} else {
			kept = append(kept, p)
		}
	}
	l.pending = kept
	if l.remaining > l.limit {
		l.remaining = l.limit
	}
}
