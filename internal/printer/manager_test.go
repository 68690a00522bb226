package printer

import (
	"context"
	"testing"
	"time"
)

func TestManagerDeliversEnqueuedJob(t *testing.T) {
	mock := NewMockPrinter()
	m := NewManager(mock, 4, nil)
	m.reconnectInterval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	m.Enqueue([]byte("receipt-1"))

	deadline := time.After(time.Second)
	for {
		if string(mock.SentData()) == "receipt-1" {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("printer did not receive job, got %q", mock.SentData())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestManagerDropsJobWhenQueueFull(t *testing.T) {
	mock := NewMockPrinter()
	m := NewManager(mock, 1, nil)

	// Fill the queue without a consumer running so the second Enqueue must
	// hit the drop path instead of blocking the test.
	m.Enqueue([]byte("first"))
	m.Enqueue([]byte("second"))

	if len(m.jobs) != 1 {
		t.Fatalf("expected queue to stay at capacity 1, got %d", len(m.jobs))
	}
}
