package middleware

import (
	"context"
	"sync"
	"time"
)

// RateLimiter counts requests per fingerprint inside a fixed window. The
// whole table is cleared every window, so a client that straddles a reset
// boundary can briefly exceed the limit.
type RateLimiter struct {
	mu     sync.Mutex
	counts map[string]int
	limit  int
	window time.Duration

	stopOnce sync.Once
	stop     chan struct{}
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		counts: make(map[string]int),
		limit:  limit,
		window: window,
		stop:   make(chan struct{}),
	}
}

// Exceeded records one request for fingerprint and reports whether the
// fingerprint had already used up its allowance before this request.
func (l *RateLimiter) Exceeded(fingerprint string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	before, ok := l.counts[fingerprint]
	if !ok {
		l.counts[fingerprint] = 1
		return false
	}
	l.counts[fingerprint] = before + 1
	return before >= l.limit
}

// Reset clears every counter.
func (l *RateLimiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.counts)
}

// Len returns the number of tracked fingerprints.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counts)
}

// Window is the interval between counter resets.
func (l *RateLimiter) Window() time.Duration {
	return l.window
}

// Start runs the reset loop until ctx is cancelled or Stop is called.
func (l *RateLimiter) Start(ctx context.Context) error {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Reset()
		case <-l.stop:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// Stop ends the reset loop. Safe to call more than once.
func (l *RateLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}
