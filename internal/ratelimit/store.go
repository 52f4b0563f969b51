// Package ratelimit bounds how often a caller may hit a route, using a sliding
// window kept in memory or in Redis.
package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of one check against a window.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Store counts hits per key over a sliding window.
type Store interface {
	AllowN(ctx context.Context, key string, cost, limit int, window time.Duration) (Result, error)
}
