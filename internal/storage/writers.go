package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Kaglioster-hub/vrabo/infrastructure/logger"
	"github.com/Kaglioster-hub/vrabo/internal/domain"
)

// LogWriter emits one structured log line per event. It is the only sink
// that sees the raw IP and user agent.
type LogWriter struct {
	log logger.Logger
}

// NewLogWriter creates a LogWriter.
func NewLogWriter(log logger.Logger) *LogWriter {
	return &LogWriter{log: log}
}

func (w *LogWriter) Name() string { return "log" }

func (w *LogWriter) Write(_ context.Context, events []domain.TrackEvent) error {
	for i := range events {
		e := &events[i]
		w.log.Info("Track",
			logger.String("event_id", e.ID.String()),
			logger.Time("time", e.Time),
			logger.String("ip", e.IP),
			logger.String("ua", e.UserAgent),
			logger.String("user_hash", e.UserHash),
			logger.String("ref", e.Referer),
			logger.String("target", e.Target),
			logger.String("tab", e.Tab),
			logger.String("title", e.Title),
			logger.String("lang", e.Lang),
			logger.Bool("is_bot", e.IsBot),
		)
	}
	return nil
}

// FileWriter appends events as JSON lines.
type FileWriter struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewFileWriter opens path for appending, creating parent directories.
func NewFileWriter(path string) (*FileWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create track log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open track log: %w", err)
	}
	return &FileWriter{file: f, enc: json.NewEncoder(f)}, nil
}

func (w *FileWriter) Name() string { return "file" }

func (w *FileWriter) Write(_ context.Context, events []domain.TrackEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i := range events {
		if err := w.enc.Encode(&events[i]); err != nil {
			return fmt.Errorf("append track event: %w", err)
		}
	}
	return nil
}

// Close closes the file.
func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
