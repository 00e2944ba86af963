package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Counter is the durable-store surface for the primary path: an atomic
// increment that starts a fresh window when none is open for the key.
type Counter interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (count int64, resetAt time.Time, err error)
}

// Result reports a single rate-limit decision.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

type localWindow struct {
	count       int
	windowStart time.Time
}

// Limiter enforces a max-requests-per-window contract per client IP. The
// primary path increments a counter in the durable store; when the store is
// unavailable it degrades to an in-process fixed window with the same limits.
type Limiter struct {
	counter Counter
	window  time.Duration
	max     int
	logger  zerolog.Logger

	mu        sync.Mutex
	local     map[string]*localWindow
	lastSweep time.Time

	now func() time.Time
}

func New(counter Counter, window time.Duration, max int, logger zerolog.Logger) *Limiter {
	return &Limiter{
		counter: counter,
		window:  window,
		max:     max,
		logger:  logger.With().Str("component", "ratelimit").Logger(),
		local:   make(map[string]*localWindow),
		now:     time.Now,
	}
}

// Check records one request from clientIP and reports whether it is allowed.
func (l *Limiter) Check(ctx context.Context, clientIP string) Result {
	if l.counter != nil {
		count, resetAt, err := l.counter.IncrWithTTL(ctx, "ratelimit:"+clientIP, l.window)
		if err == nil {
			remaining := l.max - int(count)
			if remaining < 0 {
				remaining = 0
			}
			return Result{Allowed: count <= int64(l.max), Remaining: remaining, ResetAt: resetAt}
		}
		l.logger.Warn().Err(err).Str("ip", clientIP).Msg("durable counter unavailable, using in-memory fallback")
	}
	return l.checkLocal(clientIP)
}

func (l *Limiter) checkLocal(clientIP string) Result {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweepLocked(now)

	w, ok := l.local[clientIP]
	if !ok || now.Sub(w.windowStart) >= l.window {
		w = &localWindow{windowStart: now}
		l.local[clientIP] = w
	}
	w.count++

	remaining := l.max - w.count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   w.count <= l.max,
		Remaining: remaining,
		ResetAt:   w.windowStart.Add(l.window),
	}
}

// sweepLocked drops windows more than twice stale so the fallback map stays
// bounded. Runs at most once per window.
func (l *Limiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	for ip, w := range l.local {
		if now.Sub(w.windowStart) > 2*l.window {
			delete(l.local, ip)
		}
	}
}
