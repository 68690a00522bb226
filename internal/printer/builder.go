// Package printer renders ESC/POS receipt byte streams and delivers them
// to a physical or virtual printer transport.
package printer

import "fmt"

// ReceiptBuilder accumulates ESC/POS command bytes for a single receipt.
// Every method returns the builder itself so calls chain, matching the
// original Rust builder's consuming-self style.
type ReceiptBuilder struct {
	buf []byte
}

// NewReceiptBuilder returns an empty builder.
func NewReceiptBuilder() *ReceiptBuilder {
	return &ReceiptBuilder{}
}

// Initialize emits ESC @, resetting the printer to its power-on state.
func (b *ReceiptBuilder) Initialize() *ReceiptBuilder {
	b.buf = append(b.buf, 0x1B, 0x40)
	return b
}

// AlignCenter emits ESC a 1.
func (b *ReceiptBuilder) AlignCenter() *ReceiptBuilder {
	b.buf = append(b.buf, 0x1B, 0x61, 0x01)
	return b
}

// AlignLeft emits ESC a 0.
func (b *ReceiptBuilder) AlignLeft() *ReceiptBuilder {
	b.buf = append(b.buf, 0x1B, 0x61, 0x00)
	return b
}

// Text appends raw text with no trailing newline.
func (b *ReceiptBuilder) Text(text string) *ReceiptBuilder {
	b.buf = append(b.buf, []byte(text)...)
	return b
}

// TextLine appends text followed by a line feed.
func (b *ReceiptBuilder) TextLine(text string) *ReceiptBuilder {
	b.buf = append(b.buf, []byte(text)...)
	b.buf = append(b.buf, 0x0A)
	return b
}

// EmptyLine emits a bare line feed.
func (b *ReceiptBuilder) EmptyLine() *ReceiptBuilder {
	b.buf = append(b.buf, 0x0A)
	return b
}

// Separator prints a fixed-width dashed rule.
func (b *ReceiptBuilder) Separator() *ReceiptBuilder {
	return b.TextLine("----------------------------------------")
}

// KV prints a "key: value" line with the key left-aligned in a 12-column
// field.
func (b *ReceiptBuilder) KV(key, value string) *ReceiptBuilder {
	return b.TextLine(fmt.Sprintf("%-12s: %s", key, value))
}

// Feed emits ESC d n, printing and feeding n lines.
func (b *ReceiptBuilder) Feed(n byte) *ReceiptBuilder {
	b.buf = append(b.buf, 0x1B, 0x64, n)
	return b
}

// Cut emits GS V 66 0, feeding to the cut position and cutting.
func (b *ReceiptBuilder) Cut() *ReceiptBuilder {
	b.buf = append(b.buf, 0x1D, 0x56, 66, 0)
	return b
}

// Build returns the accumulated byte stream.
func (b *ReceiptBuilder) Build() []byte {
	return b.buf
}
