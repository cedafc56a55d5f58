package auth

import (
	"context"
	"log/slog"
	"time"
)

const (
	loginWindow       = 15 * time.Minute
	loginMaxFailures  = 5
	attemptsRetention = 30 * 24 * time.Hour
)

// RateLimiter throttles login by failed attempts per email over a trailing window.
// Count-then-insert is not atomic, so a burst of parallel failures may overshoot the limit.
type RateLimiter struct {
	Attempts    AttemptStore
	Logger      *slog.Logger
	Now         func() time.Time
	Window      time.Duration
	MaxFailures int
}

func NewRateLimiter(attempts AttemptStore, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		Attempts:    attempts,
		Logger:      logger,
		Now:         time.Now,
		Window:      loginWindow,
		MaxFailures: loginMaxFailures,
	}
}

// IsLimited fails open: a storage error is logged and reported as not limited.
func (r *RateLimiter) IsLimited(ctx context.Context, email string) bool {
	n, err := r.Attempts.CountFailedSince(ctx, email, r.now().Add(-r.window()))
	if err != nil {
		r.logger().Error("rate limit check failed", "err", err)
		return false
	}
	return n >= r.maxFailures()
}

func (r *RateLimiter) Record(ctx context.Context, email, ip string, success bool) {
	err := r.Attempts.Record(ctx, LoginAttempt{
		Email:       email,
		IP:          ip,
		Success:     success,
		AttemptedAt: r.now(),
	})
	if err != nil {
		r.logger().Error("record login attempt failed", "err", err)
	}
}

// Purge drops attempts older than the retention period.
func (r *RateLimiter) Purge(ctx context.Context) (int64, error) {
	return r.Attempts.DeleteBefore(ctx, r.now().Add(-attemptsRetention))
}

func (r *RateLimiter) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *RateLimiter) window() time.Duration {
	if r.Window > 0 {
		return r.Window
	}
	return loginWindow
}

func (r *RateLimiter) maxFailures() int {
	if r.MaxFailures > 0 {
		return r.MaxFailures
	}
	return loginMaxFailures
}

func (r *RateLimiter) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
