package rate

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Reset(ctx context.Context, key string) error
}

// Policy is a fixed-window budget: Limit hits per Window for each subject.
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
}

type Limiter struct {
	store WindowStore
}

func NewLimiter(store WindowStore) *Limiter {
	return &Limiter{store: store}
}

// Allow counts one attempt by subject under p. When the budget is spent it
// returns allowed=false with the seconds until the window resets. A policy
// with a non-positive limit never blocks.
func (l *Limiter) Allow(ctx context.Context, p Policy, subject string) (int64, bool, error) {
	if strings.TrimSpace(subject) == "" {
		return 0, false, fmt.Errorf("rate subject is required")
	}
	if p.Limit <= 0 || p.Window <= 0 {
		return 0, true, nil
	}
	if l.store == nil {
		return 0, false, fmt.Errorf("rate limiter store is nil")
	}

	count, ttl, err := l.store.IncrementWindow(ctx, key(p, subject), p.Window)
	if err != nil {
		return 0, false, err
	}
	if count > int64(p.Limit) {
		return ceilSeconds(ttl), false, nil
	}
	return 0, true, nil
}

// Reset clears the subject's window, e.g. after a successful attempt.
func (l *Limiter) Reset(ctx context.Context, p Policy, subject string) error {
	if l.store == nil {
		return fmt.Errorf("rate limiter store is nil")
	}
	return l.store.Reset(ctx, key(p, subject))
}

func key(p Policy, subject string) string {
	return "rate:" + p.Name + ":" + strings.ToLower(strings.TrimSpace(subject))
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 1
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	return sec
}
