package forward

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ifa-automation/scada-edge-agent/internal/core/domain"
	"github.com/ifa-automation/scada-edge-agent/internal/storage/sqlite"
)

type fakeClient struct {
	mu         sync.Mutex
	connected  bool
	published  int
	shouldFail bool
}

func (c *fakeClient) PublishBytes(ctx context.Context, topic string, payload []byte, qos byte, retain bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shouldFail {
		return errors.New("simulated publish failure")
	}
	c.published++
	return nil
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) setConnected(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = v
}

func (c *fakeClient) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.published
}

func newTestBuffer(t *testing.T) *sqlite.Buffer {
	t.Helper()
	path := filepath.Join(t.TempDir(), "buffer.db")
	buf, err := sqlite.NewBuffer(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("NewBuffer() error = %v", err)
	}
	t.Cleanup(func() { buf.Close() })
	return buf
}

func TestPublisherBuffersWhenOffline(t *testing.T) {
	client := &fakeClient{connected: false}
	buf := newTestBuffer(t)
	pub := &Publisher{client: client, buffer: buf, agentID: "agent-1"}
	pub.logger = slog.Default()

	tagID, _ := domain.NewTagID("TAG_A")
	if err := pub.Publish(context.Background(), domain.NewTagValueUpdatedEvent(tagID, 1.0, domain.QualityGood)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	count, err := buf.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one buffered event while offline, got %d", count)
	}
	if client.count() != 0 {
		t.Fatal("expected no publish attempt while offline")
	}
}

func TestPublisherBuffersOnPublishFailure(t *testing.T) {
	client := &fakeClient{connected: true, shouldFail: true}
	buf := newTestBuffer(t)
	pub := &Publisher{client: client, buffer: buf, agentID: "agent-1"}
	pub.logger = slog.Default()

	tagID, _ := domain.NewTagID("TAG_B")
	if err := pub.Publish(context.Background(), domain.NewTagValueUpdatedEvent(tagID, 1.0, domain.QualityGood)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	count, _ := buf.Count(context.Background())
	if count != 1 {
		t.Fatalf("expected the failed publish to be buffered, got %d", count)
	}
}

func TestPublisherDeliversDirectlyWhenOnline(t *testing.T) {
	client := &fakeClient{connected: true}
	buf := newTestBuffer(t)
	pub := &Publisher{client: client, buffer: buf, agentID: "agent-1"}
	pub.logger = slog.Default()

	tagID, _ := domain.NewTagID("TAG_C")
	if err := pub.Publish(context.Background(), domain.NewTagValueUpdatedEvent(tagID, 1.0, domain.QualityGood)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if client.count() != 1 {
		t.Fatalf("expected direct publish when online, got %d", client.count())
	}
	count, _ := buf.Count(context.Background())
	if count != 0 {
		t.Fatalf("expected nothing buffered when online, got %d", count)
	}
}

func TestPublisherDoesNotBufferHeartbeats(t *testing.T) {
	client := &fakeClient{connected: false}
	buf := newTestBuffer(t)
	pub := &Publisher{client: client, buffer: buf, agentID: "agent-1"}
	pub.logger = slog.Default()

	if err := pub.Publish(context.Background(), domain.NewAgentHeartbeatEvent("agent-1", "v1", 1, nil)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	count, _ := buf.Count(context.Background())
	if count != 0 {
		t.Fatalf("expected heartbeat not to be buffered, got %d", count)
	}
}

func TestPublisherFlushOnceDrainsBufferWhenOnline(t *testing.T) {
	client := &fakeClient{connected: false}
	buf := newTestBuffer(t)
	pub := &Publisher{client: client, buffer: buf, agentID: "agent-1"}
	pub.logger = slog.Default()

	tagID, _ := domain.NewTagID("TAG_D")
	_ = pub.Publish(context.Background(), domain.NewTagValueUpdatedEvent(tagID, 1.0, domain.QualityGood))

	client.setConnected(true)
	pub.flushOnce(context.Background())

	count, _ := buf.Count(context.Background())
	if count != 0 {
		t.Fatalf("expected flushOnce to drain the buffer, got %d remaining", count)
	}
	if client.count() != 1 {
		t.Fatalf("expected the buffered event to be forwarded, got %d publishes", client.count())
	}
}

func TestPublisherRunFlusherStopsOnContextCancel(t *testing.T) {
	client := &fakeClient{connected: true}
	buf := newTestBuffer(t)
	pub := &Publisher{client: client, buffer: buf, agentID: "agent-1"}
	pub.logger = slog.Default()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pub.runFlusher(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runFlusher did not return after context cancellation")
	}
}
