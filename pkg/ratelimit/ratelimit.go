package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of a single hit against a limiter.
type Result struct {
	Allowed    bool
	Count      int64
	Limit      int64
	RetryAfter time.Duration
}

// Limiter counts hits per key in a fixed window and reports whether the
// latest hit is still within the limit.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

type Rule struct {
	Limit  int64
	Window time.Duration
}

func (r Rule) result(count int64, retry time.Duration) Result {
	if retry < 0 {
		retry = 0
	}
	return Result{
		Allowed:    count <= r.Limit,
		Count:      count,
		Limit:      r.Limit,
		RetryAfter: retry,
	}
}
