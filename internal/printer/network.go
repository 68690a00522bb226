package printer

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/ifa-automation/scada-edge-agent/internal/core/domain"
)

// NetworkPrinter is a domain.PrinterConnection over a TCP socket, the
// transport most ESC/POS-capable receipt printers expose directly.
type NetworkPrinter struct {
	address string
	timeout time.Duration
	conn    net.Conn
}

// NewNetworkPrinter returns a NetworkPrinter targeting host:port.
func NewNetworkPrinter(host string, port uint16) *NetworkPrinter {
	return &NetworkPrinter{
		address: fmt.Sprintf("%s:%d", host, port),
		timeout: 5 * time.Second,
	}
}

func (p *NetworkPrinter) Connect(ctx context.Context) error {
	dialer := net.Dialer{Timeout: p.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", p.address)
	if err != nil {
		return fmt.Errorf("%w: connect %s: %v", domain.ErrPrinterConnection, p.address, err)
	}
	p.conn = conn
	return nil
}

func (p *NetworkPrinter) Disconnect(ctx context.Context) error {
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

func (p *NetworkPrinter) IsConnected() bool {
	return p.conn != nil
}

func (p *NetworkPrinter) SendCommands(ctx context.Context, commands []byte) error {
	if p.conn == nil {
		return domain.ErrPrinterNotConnected
	}
	if _, err := p.conn.Write(commands); err != nil {
		p.conn.Close()
		p.conn = nil
		return fmt.Errorf("%w: %v", domain.ErrPrinterWrite, err)
	}
	return nil
}
