package ratelimiter

import (
	"Jarvis_chat/backend/go/pkg/util"
	"context"
	"sync"
	"time"
)

// TokenBucket implements the RateLimiter interface using the token bucket algorithm.
// It allows for bursts of requests up to the bucket's capacity.
type TokenBucket struct {
	rate          float64   // tokens per second
	capacity      float64   // burst size
	tokens        float64
	lastTokenTime time.Time
	mutex         sync.Mutex
	now           func() time.Time
}

// NewTokenBucket creates a new TokenBucket that starts full.
func NewTokenBucket(rate float64, capacity int) *TokenBucket {
	return newTokenBucketAt(rate, capacity, time.Now)
}

func newTokenBucketAt(rate float64, capacity int, now func() time.Time) *TokenBucket {
	return &TokenBucket{
		rate:          rate,
		capacity:      float64(capacity),
		tokens:        float64(capacity),
		lastTokenTime: now(),
		now:           now,
	}
}

// Allow refills the bucket for the elapsed time and consumes one token if available.
func (tb *TokenBucket) Allow() bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	now := tb.now()
	if elapsed := now.Sub(tb.lastTokenTime); elapsed > 0 {
		tb.tokens += elapsed.Seconds() * tb.rate
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastTokenTime = now
	}

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// KeyedTokenBucket keeps one in-process TokenBucket per key. Idle keys are
// evicted by an LRU so memory stays bounded with many users.
type KeyedTokenBucket struct {
	rate     float64
	capacity int
	buckets  *util.LRUCache[string, *TokenBucket]
	mutex    sync.Mutex
	now      func() time.Time
}

// NewKeyedTokenBucket creates a per-key limiter tracking at most maxKeys keys.
func NewKeyedTokenBucket(rate float64, capacity, maxKeys int) *KeyedTokenBucket {
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	buckets, _ := util.NewWithConfig(util.CacheConfig[string, *TokenBucket]{Capacity: maxKeys})
	return &KeyedTokenBucket{rate: rate, capacity: capacity, buckets: buckets, now: time.Now}
}

func (k *KeyedTokenBucket) AllowKey(_ context.Context, key string) (bool, error) {
	k.mutex.Lock()
	tb, ok := k.buckets.Get(key)
	if !ok {
		tb = newTokenBucketAt(k.rate, k.capacity, k.now)
		k.buckets.Put(key, tb, 1)
	}
	k.mutex.Unlock()
	return tb.Allow(), nil
}
