package storage

import (
	"context"
	"sync"
	"time"

	"github.com/Kaglioster-hub/vrabo/infrastructure/logger"
	"github.com/Kaglioster-hub/vrabo/internal/domain"
)

// flushTimeout bounds each flush across all writers.
const flushTimeout = 5 * time.Second

// Writer persists a batch of events.
type Writer interface {
	Name() string
	Write(ctx context.Context, events []domain.TrackEvent) error
}

// Observer is told how many events each writer flushed and whether it failed.
type Observer interface {
	ObserveFlush(writer string, events int, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveFlush(string, int, error) {}

// StoreConfig configures batching.
type StoreConfig struct {
	FlushInterval  time.Duration
	FlushThreshold int
}

// Store drains a Buffer in the background and hands batches to every
// writer in order. A failing writer does not stop the others.
type Store struct {
	buffer         *Buffer
	writers        []Writer
	log            logger.Logger
	observer       Observer
	flushInterval  time.Duration
	flushThreshold int
	wg             sync.WaitGroup
}

// NewStore creates a Store.
func NewStore(buffer *Buffer, cfg StoreConfig, log logger.Logger, writers ...Writer) *Store {
	return &Store{
		buffer:         buffer,
		writers:        writers,
		log:            log,
		observer:       nopObserver{},
		flushInterval:  cfg.FlushInterval,
		flushThreshold: max(1, cfg.FlushThreshold),
	}
}

// SetObserver replaces the flush observer. Call before Start.
func (s *Store) SetObserver(o Observer) {
	s.observer = o
}

// Start launches the flush goroutine.
func (s *Store) Start() {
	s.wg.Go(s.flushLoop)
}

// Stop closes the buffer and waits until every queued event was flushed.
func (s *Store) Stop() {
	s.buffer.Close()
	s.wg.Wait()
}

// flushLoop accumulates a batch and flushes it when it reaches
// flushThreshold or the ticker fires.
func (s *Store) flushLoop() {
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	batch := make([]domain.TrackEvent, 0, s.flushThreshold)

	for {
		select {
		case event := <-s.buffer.events:
			batch = append(batch, event)
			if len(batch) >= s.flushThreshold {
				s.flush(batch)
				batch = make([]domain.TrackEvent, 0, s.flushThreshold)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				s.flush(batch)
				batch = make([]domain.TrackEvent, 0, s.flushThreshold)
			}

		case <-s.buffer.closed:
			s.drain(&batch)
			if len(batch) > 0 {
				s.flush(batch)
			}
			return
		}
	}
}

// drain reads all remaining events from the buffer channel into the batch.
func (s *Store) drain(batch *[]domain.TrackEvent) {
	for {
		select {
		case event := <-s.buffer.events:
			*batch = append(*batch, event)
		default:
			return
		}
	}
}

func (s *Store) flush(batch []domain.TrackEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	for _, w := range s.writers {
		err := w.Write(ctx, batch)
		s.observer.ObserveFlush(w.Name(), len(batch), err)
		if err != nil {
			s.log.Error("Failed to write track events",
				logger.String("writer", w.Name()),
				logger.Int("batch_size", len(batch)),
				logger.Error(err),
			)
		}
	}

	s.log.Debug("Flushed track events", logger.Int("total", len(batch)))
}
