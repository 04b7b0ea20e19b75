// Package ratelimit provides the per-subject request limiter. One token
// bucket per authenticated subject, sized from the configured per-minute
// budget. Stale entries are reaped lazily on access, never by a background
// sweep.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// staleAfter is how long an idle subject's bucket is kept.
	staleAfter = 10 * time.Minute
	// cleanupEvery bounds how often the reap pass runs.
	cleanupEvery = time.Minute
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter tracks one token bucket per subject. Safe for concurrent use.
type Limiter struct {
	mu          sync.Mutex
	perMinute   int
	entries     map[string]*entry
	lastCleanup time.Time

	now func() time.Time
}

// New builds a limiter allowing perMinute requests per subject.
func New(perMinute int) *Limiter {
	return &Limiter{
		perMinute: perMinute,
		entries:   make(map[string]*entry),
		now:       time.Now,
	}
}

// Allow reports whether the subject may proceed and consumes one token if so.
func (l *Limiter) Allow(subject string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastCleanup) >= cleanupEvery {
		l.reapLocked(now)
		l.lastCleanup = now
	}

	e, ok := l.entries[subject]
	if !ok {
		e = &entry{
			limiter: rate.NewLimiter(rate.Limit(float64(l.perMinute)/60.0), l.perMinute),
		}
		l.entries[subject] = e
	}
	e.lastSeen = now
	return e.limiter.Allow()
}

// Size returns the number of tracked subjects.
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Limiter) reapLocked(now time.Time) {
	for subject, e := range l.entries {
		if now.Sub(e.lastSeen) > staleAfter {
			delete(l.entries, subject)
		}
	}
}
