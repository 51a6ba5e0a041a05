package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Kaglioster-hub/vrabo/internal/domain"
)

const (
	// columnsPerRow is the number of columns inserted per event row.
	columnsPerRow = 8

	// insertBatchSize is the maximum number of rows per INSERT statement.
	insertBatchSize = 50
)

// PostgresWriter batch-inserts human events into track_events. Bot events
// and raw client identifiers are never stored.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter creates a PostgresWriter.
func NewPostgresWriter(db *sql.DB) *PostgresWriter {
	return &PostgresWriter{db: db}
}

func (w *PostgresWriter) Name() string { return "postgres" }

// Write inserts events in chunks of insertBatchSize, one statement each.
func (w *PostgresWriter) Write(ctx context.Context, events []domain.TrackEvent) error {
	humans := make([]domain.TrackEvent, 0, len(events))
	for i := range events {
		if !events[i].IsBot {
			humans = append(humans, events[i])
		}
	}

	for start := 0; start < len(humans); start += insertBatchSize {
		end := min(start+insertBatchSize, len(humans))
		if err := w.batchInsert(ctx, humans[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// batchInsert builds and executes a single INSERT statement with multiple
// value tuples.
func (w *PostgresWriter) batchInsert(ctx context.Context, events []domain.TrackEvent) error {
	if len(events) == 0 {
		return nil
	}

	args := make([]any, 0, len(events)*columnsPerRow)
	var sb strings.Builder

	sb.WriteString("INSERT INTO track_events (id, user_hash, referer, target, tab, title, lang, created_at) VALUES ")

	for i := range events {
		if i > 0 {
			sb.WriteString(", ")
		}

		writeValueTuple(&sb, i)

		e := &events[i]
		args = append(args,
			e.ID, e.UserHash, e.Referer, e.Target,
			e.Tab, e.Title, e.Lang, e.Time,
		)
	}

	if _, err := w.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("exec batch insert: %w", err)
	}
	return nil
}

// writeValueTuple writes a ($1, ..., $8) placeholder tuple offset by the row
// index.
func writeValueTuple(sb *strings.Builder, rowIndex int) {
	base := rowIndex * columnsPerRow
	sb.WriteByte('(')
	for col := 1; col <= columnsPerRow; col++ {
		if col > 1 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "$%d", base+col)
	}
	sb.WriteByte(')')
}
