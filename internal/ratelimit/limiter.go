// Package ratelimit throttles calls to the outbound backends (live search,
// mock ingestion and the LLM) with one token bucket each.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

const (
	BackendSearch = "search"
	BackendMock   = "mock"
	BackendLLM    = "llm"
)

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

func (c RateLimitConfig) newLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(c.RequestsPerSecond), c.BurstSize)
}

func DefaultConfig() RateLimitConfig {
	return RateLimitConfig{RequestsPerSecond: 10, BurstSize: 20}
}

// BackendLimiter hands out a bucket per backend name. Backends without an
// explicit limit get a bucket built from the defaults on first use.
type BackendLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*rate.Limiter
	defaults RateLimitConfig
}

func NewBackendLimiter(defaults RateLimitConfig) *BackendLimiter {
	return &BackendLimiter{buckets: make(map[string]*rate.Limiter), defaults: defaults}
}

func NewBackendLimiterWithDefaults() *BackendLimiter {
	return NewBackendLimiter(DefaultConfig())
}

func (b *BackendLimiter) GetLimiter(backend string) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()

	bucket, ok := b.buckets[backend]
	if !ok {
		bucket = b.defaults.newLimiter()
		b.buckets[backend] = bucket
	}
	return bucket
}

// SetBackendLimit replaces the backend's bucket. A non-positive rps leaves
// the current bucket untouched.
func (b *BackendLimiter) SetBackendLimit(backend string, rps float64, burst int) {
	if rps <= 0 {
		return
	}
	if burst < 1 {
		burst = 1
	}

	b.mu.Lock()
	b.buckets[backend] = RateLimitConfig{RequestsPerSecond: rps, BurstSize: burst}.newLimiter()
	b.mu.Unlock()
}

// Wait blocks until the backend's bucket has a token. A nil limiter never blocks.
func (b *BackendLimiter) Wait(ctx context.Context, backend string) error {
	if b == nil {
		return nil
	}
	return b.GetLimiter(backend).Wait(ctx)
}
