package printer

import (
	"bytes"
	"testing"
)

func TestReceiptBuilderInitialize(t *testing.T) {
	got := NewReceiptBuilder().Initialize().Build()
	want := []byte{0x1B, 0x40}
	if !bytes.Equal(got, want) {
		t.Fatalf("Initialize() = %v, want %v", got, want)
	}
}

func TestReceiptBuilderChaining(t *testing.T) {
	got := NewReceiptBuilder().
		Initialize().
		AlignCenter().
		TextLine("HELLO").
		Separator().
		AlignLeft().
		KV("Tag", "TAG_A").
		Feed(2).
		Cut().
		Build()

	if !bytes.Contains(got, []byte("HELLO\n")) {
		t.Fatal("expected HELLO line in output")
	}
	if !bytes.Contains(got, []byte("Tag")) {
		t.Fatal("expected KV key in output")
	}
	if !bytes.HasSuffix(got, []byte{0x1D, 0x56, 66, 0}) {
		t.Fatal("expected output to end with the cut command")
	}
}

func TestReceiptBuilderKVFormat(t *testing.T) {
	got := string(NewReceiptBuilder().KV("Valor", "42.0").Build())
	want := "Valor       : 42.0\n"
	if got != want {
		t.Fatalf("KV() = %q, want %q", got, want)
	}
}
