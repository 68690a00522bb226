// Package sqlite persists events the agent couldn't deliver immediately,
// backing internal/forward's store-and-forward publisher. Ported from
// original_source/crates/infrastructure/src/database/sqlite_buffer.rs,
// rebuilt on database/sql + modernc.org/sqlite the way the teacher's
// internal/storage/sqlite package opens its embedded database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// BufferedEvent is one row dequeued from the offline buffer: its row id
// (needed to delete it once forwarded), the topic it was destined for,
// and the raw payload bytes.
type BufferedEvent struct {
	ID      int64
	Topic   string
	Payload []byte
}

// Buffer is a durable FIFO queue of (topic, payload) pairs, used to hold
// events while the upstream MQTT broker is unreachable.
type Buffer struct {
	db     *sql.DB
	logger *slog.Logger
	path   string
}

// NewBuffer opens (creating if needed) the SQLite-backed offline buffer at
// path, enabling WAL mode for concurrent readers during the enqueue writer.
func NewBuffer(ctx context.Context, path string, logger *slog.Logger) (*Buffer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		return nil, fmt.Errorf("sqlite buffer path cannot be empty")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create buffer directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite buffer: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite buffer ping failed: %w", err)
	}

	b := &Buffer{db: db, logger: logger, path: path}
	if err := b.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("offline buffer initialized", "path", path)
	return b, nil
}

func (b *Buffer) initSchema(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS offline_buffer (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    topic TEXT NOT NULL,
    payload BLOB NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_offline_buffer_created_at ON offline_buffer(created_at);
`
	if _, err := b.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize offline buffer schema: %w", err)
	}
	return nil
}

// Enqueue appends (topic, payload) to the buffer.
func (b *Buffer) Enqueue(ctx context.Context, topic string, payload []byte) error {
	_, err := b.db.ExecContext(ctx,
		"INSERT INTO offline_buffer (topic, payload, created_at) VALUES (?, ?, ?)",
		topic, payload, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue buffered event: %w", err)
	}
	return nil
}

// DequeueBatch returns up to limit of the oldest buffered events without
// removing them; the caller deletes each one once successfully forwarded.
func (b *Buffer) DequeueBatch(ctx context.Context, limit int64) ([]BufferedEvent, error) {
	rows, err := b.db.QueryContext(ctx,
		"SELECT id, topic, payload FROM offline_buffer ORDER BY created_at ASC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue buffered batch: %w", err)
	}
	defer rows.Close()

	var batch []BufferedEvent
	for rows.Next() {
		var ev BufferedEvent
		if err := rows.Scan(&ev.ID, &ev.Topic, &ev.Payload); err != nil {
			return nil, fmt.Errorf("failed to scan buffered event: %w", err)
		}
		batch = append(batch, ev)
	}
	return batch, rows.Err()
}

// Delete removes a buffered event by id, once it has been forwarded.
func (b *Buffer) Delete(ctx context.Context, id int64) error {
	if _, err := b.db.ExecContext(ctx, "DELETE FROM offline_buffer WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete buffered event %d: %w", id, err)
	}
	return nil
}

// Count returns the number of events currently buffered.
func (b *Buffer) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := b.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM offline_buffer").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count buffered events: %w", err)
	}
	return count, nil
}

// Close closes the underlying database connection.
func (b *Buffer) Close() error {
	return b.db.Close()
}
