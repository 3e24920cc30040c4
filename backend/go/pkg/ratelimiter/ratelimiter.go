package ratelimiter

import "context"

// RateLimiter is a single shared bucket. Allow returns true if a request is allowed.
type RateLimiter interface {
	Allow() bool
}

// KeyedLimiter limits each key (typically a user id) independently.
// Implementations backed by a remote store may return an error, callers decide
// whether to fail open.
type KeyedLimiter interface {
	AllowKey(ctx context.Context, key string) (bool, error)
}
