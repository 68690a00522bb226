package domain

import "context"

// PrinterConnection is a connection-oriented sink for raw ESC/POS command
// bytes, implemented by each physical/virtual printer transport
// (network, file/share, in-memory for tests).
type PrinterConnection interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool
	SendCommands(ctx context.Context, commands []byte) error
}
