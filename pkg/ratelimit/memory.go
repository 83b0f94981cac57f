package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int64
	expires time.Time
}

// MemoryLimiter is a single-process limiter for development and tests.
type MemoryLimiter struct {
	mu      sync.Mutex
	rule    Rule
	windows map[string]*window
	now     func() time.Time
}

func NewMemoryLimiter(rule Rule) *MemoryLimiter {
	return &MemoryLimiter{rule: rule, windows: make(map[string]*window), now: time.Now}
}

// WithClock replaces the time source.
func (l *MemoryLimiter) WithClock(now func() time.Time) *MemoryLimiter {
	l.now = now
	return l
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.expires) {
		w = &window{expires: now.Add(l.rule.Window)}
		l.windows[key] = w
	}
	w.count++
	return l.rule.result(w.count, w.expires.Sub(now)), nil
}

// Prune drops expired windows.
func (l *MemoryLimiter) Prune(_ context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	var n int64
	for k, w := range l.windows {
		if !now.Before(w.expires) {
			delete(l.windows, k)
			n++
		}
	}
	return n, nil
}
