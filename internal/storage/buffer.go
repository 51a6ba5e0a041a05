// Package storage buffers track events and flushes them to their sinks.
package storage

import (
	"sync"

	"github.com/Kaglioster-hub/vrabo/internal/domain"
)

// Buffer is a channel-based event buffer for non-blocking ingestion.
type Buffer struct {
	events chan domain.TrackEvent
	closed chan struct{}
	once   sync.Once
}

// NewBuffer creates a buffer with a buffered channel of the given capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{
		events: make(chan domain.TrackEvent, capacity),
		closed: make(chan struct{}),
	}
}

// Send performs a non-blocking send. It returns false when the buffer is
// full or closed.
func (b *Buffer) Send(event domain.TrackEvent) bool {
	select {
	case <-b.closed:
		return false
	default:
	}

	select {
	case b.events <- event:
		return true
	default:
		return false
	}
}

// Len returns the number of events waiting in the buffer.
func (b *Buffer) Len() int {
	return len(b.events)
}

// Close signals the buffer to stop accepting events. It is safe to call
// multiple times.
func (b *Buffer) Close() {
	b.once.Do(func() {
		close(b.closed)
	})
}
