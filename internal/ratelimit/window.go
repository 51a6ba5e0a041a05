// Package ratelimit provides per-key request limiters.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether a request from key may proceed.
type Limiter interface {
	Allow(key string) bool
}

type windowEntry struct {
	count       int
	windowStart time.Time
}

// Window is a fixed-window limiter: each key may make max requests in a
// window that starts with its first request. State is in memory and local
// to the process.
type Window struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string]*windowEntry
	now     func() time.Time
}

// NewWindow creates a fixed-window limiter.
func NewWindow(max int, window time.Duration) *Window {
	return &Window{
		max:     max,
		window:  window,
		entries: make(map[string]*windowEntry),
		now:     time.Now,
	}
}

// Allow counts one request for key and reports whether it is within the limit.
func (w *Window) Allow(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	e, ok := w.entries[key]
	if !ok || now.Sub(e.windowStart) > w.window {
		w.entries[key] = &windowEntry{count: 1, windowStart: now}
		return true
	}

	e.count++
	return e.count <= w.max
}

// Sweep drops keys whose window has elapsed.
func (w *Window) Sweep() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	for key, e := range w.entries {
		if now.Sub(e.windowStart) > w.window {
			delete(w.entries, key)
		}
	}
}

// Len returns the number of tracked keys.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

// Run sweeps every window until ctx is done.
func (w *Window) Run(ctx context.Context) {
	runSweeper(ctx, w.window, w.Sweep)
}

func runSweeper(ctx context.Context, every time.Duration, sweep func()) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
