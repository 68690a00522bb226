package batch

import (
	"testing"
	"time"
)

func TestManagerAccumulatesItems(t *testing.T) {
	m := NewManager(nil)
	m.AddItem(1.0, nil)
	m.AddItem(2.0, nil)

	if m.IsEmpty() {
		t.Fatal("expected non-empty batch after AddItem")
	}

	items := m.TakeBatch()
	if len(items) != 2 {
		t.Fatalf("TakeBatch() returned %d items, want 2", len(items))
	}
	if !m.IsEmpty() {
		t.Fatal("expected empty batch after TakeBatch")
	}
}

func TestManagerResetsOnNegativeToPositiveTransition(t *testing.T) {
	m := NewManager(nil)
	m.AddItem(5.0, nil)
	m.AddItem(-1.0, nil)
	m.AddItem(3.0, nil)

	items := m.TakeBatch()
	if len(items) != 1 {
		t.Fatalf("expected batch reset to leave only the new cycle's item, got %d", len(items))
	}
	if items[0].Value != 3.0 {
		t.Fatalf("items[0].Value = %v, want 3.0", items[0].Value)
	}
}

func TestManagerExtractsCompositeValue(t *testing.T) {
	m := NewManager(nil)
	m.AddItem(map[string]any{"value": 10.0, "unit": "kg"}, nil)
	m.AddItem(map[string]any{"value": -2.0, "unit": "kg"}, nil)
	m.AddItem(map[string]any{"value": 4.0, "unit": "kg"}, nil)

	items := m.TakeBatch()
	if len(items) != 1 {
		t.Fatalf("expected composite negative->positive transition to reset the batch, got %d items", len(items))
	}
}

func TestManagerResetsOnSessionTimeout(t *testing.T) {
	m := NewManager(nil)
	m.sessionTimeout = time.Millisecond
	m.AddItem(1.0, nil)
	time.Sleep(5 * time.Millisecond)
	m.AddItem(2.0, nil)

	items := m.TakeBatch()
	if len(items) != 1 {
		t.Fatalf("expected stale session to reset before the new item, got %d items", len(items))
	}
}
