package printer

import (
	"context"
	"testing"

	"github.com/ifa-automation/scada-edge-agent/internal/core/domain"
)

func TestMockPrinterRequiresConnection(t *testing.T) {
	p := NewMockPrinter()
	if err := p.SendCommands(context.Background(), []byte("x")); err != domain.ErrPrinterNotConnected {
		t.Fatalf("SendCommands() error = %v, want ErrPrinterNotConnected", err)
	}
}

func TestMockPrinterRecordsSentData(t *testing.T) {
	p := NewMockPrinter()
	ctx := context.Background()
	if err := p.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !p.IsConnected() {
		t.Fatal("expected IsConnected() true after Connect")
	}
	if err := p.SendCommands(ctx, []byte("hello")); err != nil {
		t.Fatalf("SendCommands() error = %v", err)
	}
	if err := p.SendCommands(ctx, []byte(" world")); err != nil {
		t.Fatalf("SendCommands() error = %v", err)
	}
	if string(p.SentData()) != "hello world" {
		t.Fatalf("SentData() = %q", p.SentData())
	}
}

func TestMockPrinterDisconnect(t *testing.T) {
	p := NewMockPrinter()
	ctx := context.Background()
	_ = p.Connect(ctx)
	_ = p.Disconnect(ctx)
	if p.IsConnected() {
		t.Fatal("expected IsConnected() false after Disconnect")
	}
}
