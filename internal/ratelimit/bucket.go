package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// bucketIdleTTL is how long an unused key keeps its bucket.
const bucketIdleTTL = 3 * time.Minute

type bucketEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Bucket is a per-key token-bucket limiter built on x/time/rate.
type Bucket struct {
	mu      sync.Mutex
	rps     rate.Limit
	burst   int
	entries map[string]*bucketEntry
	now     func() time.Time
}

// NewBucket allows rps sustained requests per key with bursts up to burst.
func NewBucket(rps float64, burst int) *Bucket {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = int(rps)
		if burst < 1 {
			burst = 1
		}
	}
	return &Bucket{
		rps:     rate.Limit(rps),
		burst:   burst,
		entries: make(map[string]*bucketEntry),
		now:     time.Now,
	}
}

// Allow takes a token from key's bucket.
func (b *Bucket) Allow(key string) bool {
	b.mu.Lock()
	now := b.now()
	e, ok := b.entries[key]
	if !ok {
		e = &bucketEntry{limiter: rate.NewLimiter(b.rps, b.burst)}
		b.entries[key] = e
	}
	e.lastSeen = now
	b.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

// Sweep drops buckets idle for longer than bucketIdleTTL.
func (b *Bucket) Sweep() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	for key, e := range b.entries {
		if now.Sub(e.lastSeen) > bucketIdleTTL {
			delete(b.entries, key)
		}
	}
}

// Len returns the number of tracked keys.
func (b *Bucket) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Run sweeps idle buckets until ctx is done.
func (b *Bucket) Run(ctx context.Context) {
	runSweeper(ctx, time.Minute, b.Sweep)
}
