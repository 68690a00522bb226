package broker

import (
	"context"
	"testing"
)

// Connect/Subscribe/Publish all require a live broker; publishing is
// exercised by the forward package through its PublisherClient seam
// instead; here we only cover what's reachable without a network dial,
// matching the corpus's practice of leaving the raw transport untested in
// favor of testing the trait/interface it implements.

func TestNewClientIsNotConnectedBeforeDial(t *testing.T) {
	c := NewClient(Config{Host: "localhost", Port: 1883, ClientID: "test-agent"}, nil)
	if c.IsConnected() {
		t.Fatal("expected a freshly constructed client to report not connected")
	}
}

func TestPublishBytesFailsWithoutConnect(t *testing.T) {
	c := NewClient(Config{Host: "localhost", Port: 1883, ClientID: "test-agent"}, nil)
	if err := c.PublishBytes(context.Background(), "scada/data/agent-1", []byte("{}"), 1, false); err == nil {
		t.Fatal("expected PublishBytes to fail before Connect is called")
	}
}

func TestSubscribeBeforeConnectRegistersWithoutError(t *testing.T) {
	c := NewClient(Config{Host: "localhost", Port: 1883, ClientID: "test-agent"}, nil)
	if err := c.Subscribe("scada/cmd/agent-1", func(Message) {}); err != nil {
		t.Fatalf("Subscribe() before Connect should only register, got error = %v", err)
	}
}

func TestDisconnectWithoutConnectDoesNotPanic(t *testing.T) {
	c := NewClient(Config{Host: "localhost", Port: 1883, ClientID: "test-agent"}, nil)
	c.Disconnect()
}
