package cache_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Kaglioster-hub/vrabo/internal/cache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestCache_GetSet(t *testing.T) {
	t.Parallel()

	c := cache.New[int](10)
	c.Set("a", 1, time.Minute)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCache_Expiry(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(0, 0)}
	c := cache.New[string](10, cache.WithClock(clock.Now))
	c.Set("k", "v", time.Second)

	clock.Advance(999 * time.Millisecond)
	_, ok := c.Get("k")
	assert.True(t, ok)

	clock.Advance(time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_EvictsOldestWhenFull(t *testing.T) {
	t.Parallel()

	c := cache.New[int](2)
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	_, _ = c.Get("a")
	c.Set("c", 3, time.Minute)

	_, okA := c.Get("a")
	_, okB := c.Get("b")
	assert.False(t, okA, "without touch the first inserted entry is evicted")
	assert.True(t, okB)
	assert.Equal(t, 2, c.Len())
}

func TestCache_LRUTouchKeepsRecentlyRead(t *testing.T) {
	t.Parallel()

	c := cache.New[int](2, cache.WithLRUTouch())
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	_, _ = c.Get("a")
	c.Set("c", 3, time.Minute)

	_, okA := c.Get("a")
	_, okB := c.Get("b")
	assert.True(t, okA)
	assert.False(t, okB)
}

func TestCache_Purge(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(0, 0)}
	c := cache.New[int](10, cache.WithClock(clock.Now))
	c.Set("short", 1, time.Second)
	c.Set("long", 2, time.Hour)

	clock.Advance(time.Minute)
	assert.Equal(t, 1, c.Purge())
	assert.Equal(t, 1, c.Len())
}

func TestCache_RunPurgesUntilCancelled(t *testing.T) {
	t.Parallel()

	c := cache.New[int](10)
	c.Set("gone", 1, time.Millisecond)
	c.Set("kept", 2, time.Hour)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestCache_RunWithoutIntervalReturns(t *testing.T) {
	t.Parallel()

	c := cache.New[int](1)
	c.Run(t.Context(), 0)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	c := cache.New[int](50, cache.WithLRUTouch())
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Go(func() {
			for j := range 100 {
				key := fmt.Sprintf("k%d", (i+j)%70)
				c.Set(key, j, time.Minute)
				_, _ = c.Get(key)
			}
		})
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 50)
}
