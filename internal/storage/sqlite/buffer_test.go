package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestBuffer(t *testing.T) *Buffer {
	t.Helper()
	path := filepath.Join(t.TempDir(), "buffer.db")
	buf, err := NewBuffer(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("NewBuffer() error = %v", err)
	}
	t.Cleanup(func() { buf.Close() })
	return buf
}

func TestBufferEnqueueAndCount(t *testing.T) {
	buf := newTestBuffer(t)
	ctx := context.Background()

	if err := buf.Enqueue(ctx, "scada/data/agent-1", []byte(`{"val":1}`)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if err := buf.Enqueue(ctx, "scada/data/agent-1", []byte(`{"val":2}`)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	count, err := buf.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 2 {
		t.Fatalf("Count() = %d, want 2", count)
	}
}

func TestBufferDequeueBatchOrdersByInsertion(t *testing.T) {
	buf := newTestBuffer(t)
	ctx := context.Background()

	_ = buf.Enqueue(ctx, "topic/a", []byte("first"))
	_ = buf.Enqueue(ctx, "topic/b", []byte("second"))
	_ = buf.Enqueue(ctx, "topic/c", []byte("third"))

	batch, err := buf.DequeueBatch(ctx, 2)
	if err != nil {
		t.Fatalf("DequeueBatch() error = %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("len(batch) = %d, want 2", len(batch))
	}
	if string(batch[0].Payload) != "first" || string(batch[1].Payload) != "second" {
		t.Fatalf("unexpected batch order: %+v", batch)
	}

	count, _ := buf.Count(ctx)
	if count != 3 {
		t.Fatal("DequeueBatch must not remove rows, only peek them")
	}
}

func TestBufferDeleteRemovesEvent(t *testing.T) {
	buf := newTestBuffer(t)
	ctx := context.Background()

	_ = buf.Enqueue(ctx, "topic/a", []byte("payload"))
	batch, err := buf.DequeueBatch(ctx, 10)
	if err != nil {
		t.Fatalf("DequeueBatch() error = %v", err)
	}
	if len(batch) != 1 {
		t.Fatalf("len(batch) = %d, want 1", len(batch))
	}

	if err := buf.Delete(ctx, batch[0].ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	count, _ := buf.Count(ctx)
	if count != 0 {
		t.Fatalf("Count() after delete = %d, want 0", count)
	}
}

func TestBufferCountOnEmptyBuffer(t *testing.T) {
	buf := newTestBuffer(t)

	count, err := buf.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Fatalf("Count() = %d, want 0", count)
	}
}

func TestBufferPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "buffer.db")
	ctx := context.Background()

	first, err := NewBuffer(ctx, path, nil)
	if err != nil {
		t.Fatalf("NewBuffer() error = %v", err)
	}
	if err := first.Enqueue(ctx, "topic/a", []byte("durable")); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	second, err := NewBuffer(ctx, path, nil)
	if err != nil {
		t.Fatalf("NewBuffer() reopen error = %v", err)
	}
	defer second.Close()

	count, err := second.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("Count() after reopen = %d, want 1", count)
	}
}
