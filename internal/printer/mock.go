package printer

import (
	"context"
	"sync"

	"github.com/ifa-automation/scada-edge-agent/internal/core/domain"
)

// MockPrinter is an in-memory domain.PrinterConnection for tests: it
// records every byte stream it's sent instead of delivering it anywhere.
type MockPrinter struct {
	mu        sync.Mutex
	connected bool
	sent      []byte
}

// NewMockPrinter returns a disconnected MockPrinter.
func NewMockPrinter() *MockPrinter {
	return &MockPrinter{}
}

func (p *MockPrinter) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = true
	return nil
}

func (p *MockPrinter) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
	return nil
}

func (p *MockPrinter) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *MockPrinter) SendCommands(ctx context.Context, commands []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return domain.ErrPrinterNotConnected
	}
	p.sent = append(p.sent, commands...)
	return nil
}

// SentData returns a copy of every byte sent so far.
func (p *MockPrinter) SentData() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.sent...)
}
