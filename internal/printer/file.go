package printer

import (
	"context"
	"fmt"
	"os"

	"github.com/ifa-automation/scada-edge-agent/internal/core/domain"
)

// FilePrinter is a domain.PrinterConnection that appends each receipt to a
// file or network share path instead of a physical printer. It opens and
// closes the file on every write rather than holding a handle open, so a
// network share mount doesn't stay locked between prints.
type FilePrinter struct {
	path      string
	connected bool
}

// NewFilePrinter returns a FilePrinter writing to path.
func NewFilePrinter(path string) *FilePrinter {
	return &FilePrinter{path: path}
}

func (p *FilePrinter) Connect(ctx context.Context) error {
	p.connected = true
	return nil
}

func (p *FilePrinter) Disconnect(ctx context.Context) error {
	p.connected = false
	return nil
}

func (p *FilePrinter) IsConnected() bool {
	return p.connected
}

func (p *FilePrinter) SendCommands(ctx context.Context, commands []byte) error {
	if !p.connected {
		return domain.ErrPrinterNotConnected
	}
	f, err := os.OpenFile(p.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", domain.ErrPrinterConnection, p.path, err)
	}
	defer f.Close()
	if _, err := f.Write(commands); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPrinterWrite, err)
	}
	return nil
}
