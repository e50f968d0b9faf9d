// Package ratelimit bounds repeated recovery work, keyed by session
// namespace, over a sliding window.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter counts hits per namespace within a sliding window and rejects
// hits past the cap. Safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	hits    map[string][]time.Time
	window  time.Duration
	maxHits int
	now     func() time.Time
}

// Option customises a Limiter
type Option func(*Limiter)

// WithNow swaps the clock. This is primarily used for testing.
func WithNow(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

func NewLimiter(window time.Duration, maxHits int, opts ...Option) *Limiter {
	l := &Limiter{
		hits:    make(map[string][]time.Time),
		window:  window,
		maxHits: maxHits,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records a hit for the namespace and reports whether it stayed within
// the cap. Hits older than the window are discarded before counting.
func (l *Limiter) Allow(namespace string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := l.trim(namespace, now)

	if len(recent) >= l.maxHits {
		l.hits[namespace] = recent
		return false
	}

	l.hits[namespace] = append(recent, now)
	return true
}

// Remaining reports how many hits the namespace has left in the current window
func (l *Limiter) Remaining(namespace string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.trim(namespace, l.now())
	l.hits[namespace] = recent
	return l.maxHits - len(recent)
}

// Reset forgets all hits recorded for the namespace
func (l *Limiter) Reset(namespace string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.hits, namespace)
}

// trim drops hits that fell out of the window. Caller holds the lock.
func (l *Limiter) trim(namespace string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)

	recent := l.hits[namespace][:0]
	for _, hit := range l.hits[namespace] {
		if hit.After(cutoff) {
			recent = append(recent, hit)
		}
	}
	return recent
}
