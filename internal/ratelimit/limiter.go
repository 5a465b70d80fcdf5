// Package ratelimit implements an in-process fixed-window request counter.
//
// State lives only in memory and is lost on restart. Every Allow call sweeps
// expired windows and, once the store reaches its cap, drops the oldest tenth
// of entries by insertion order so memory stays bounded whatever the traffic.
package ratelimit

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

const (
	DefaultMaxEntries = 10000
	evictDivisor      = 10
)

type entry struct {
	count   int
	resetAt time.Time
}

type Limiter struct {
	mu            sync.Mutex
	entries       *simplelru.LRU[string, *entry]
	maxEntries    int
	sweepInterval time.Duration
	lastSweep     time.Time
	now           func() time.Time
}

type Option func(*Limiter)

func WithMaxEntries(n int) Option {
	return func(l *Limiter) {
		if n > 0 {
			l.maxEntries = n
		}
	}
}

// WithSweepInterval spaces out full sweeps. Zero sweeps on every call.
func WithSweepInterval(d time.Duration) Option {
	return func(l *Limiter) {
		if d >= 0 {
			l.sweepInterval = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

func New(opts ...Option) *Limiter {
	l := &Limiter{
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	// The lru never reaches its own cap; eviction is driven by evictOldestLocked.
	// Entries are only ever read with Peek so list order stays insertion order.
	entries, err := simplelru.NewLRU[string, *entry](l.maxEntries+1, nil)
	if err != nil {
		panic(err)
	}
	l.entries = entries
	return l
}

// Allow reports whether one more request for key fits in the current window
// of length window holding at most limit requests. The check and the
// increment happen under one lock.
func (l *Limiter) Allow(key string, limit int, window time.Duration) bool {
	if window <= 0 {
		return true
	}
	if limit <= 0 {
		return false
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweepLocked(now)

	if e, ok := l.entries.Peek(key); ok {
		if e.resetAt.After(now) {
			if e.count >= limit {
				return false
			}
			e.count++
			return true
		}
		l.entries.Remove(key)
	}
	if l.entries.Len() >= l.maxEntries {
		l.evictOldestLocked()
	}
	l.entries.Add(key, &entry{count: 1, resetAt: now.Add(window)})
	return true
}

// RetryAfter returns how long until the live window of key resets, or zero
// when key has no live window.
func (l *Limiter) RetryAfter(key string) time.Duration {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries.Peek(key)
	if !ok || !e.resetAt.After(now) {
		return 0
	}
	return e.resetAt.Sub(now)
}

// Len returns the number of stored windows, expired ones included until the
// next sweep.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries.Len()
}

func (l *Limiter) sweepLocked(now time.Time) {
	if l.sweepInterval > 0 && !l.lastSweep.IsZero() && now.Sub(l.lastSweep) < l.sweepInterval {
		return
	}
	l.lastSweep = now
	for _, key := range l.entries.Keys() {
		e, ok := l.entries.Peek(key)
		if ok && !e.resetAt.After(now) {
			l.entries.Remove(key)
		}
	}
}

func (l *Limiter) evictOldestLocked() {
	n := l.maxEntries / evictDivisor
	if n < 1 {
		n = 1
	}
	for i := 0; i < n; i++ {
		if _, _, ok := l.entries.RemoveOldest(); !ok {
			return
		}
	}
}
