package domain

import "testing"

func newTestTag(t *testing.T) *Tag {
	t.Helper()
	id, err := NewTagID("TEST_TAG")
	if err != nil {
		t.Fatalf("NewTagID() error = %v", err)
	}
	return NewTag(id, "device-1", map[string]any{"port": "COM3"}, NewOnChangeMode(100, 30000), ValueTypeSimple, PipelineConfig{})
}

func TestNewTag(t *testing.T) {
	tag := newTestTag(t)
	if tag.ID().String() != "TEST_TAG" {
		t.Fatalf("ID() = %q", tag.ID())
	}
	if tag.Status() != StatusUnknown {
		t.Fatalf("Status() = %v", tag.Status())
	}
	if tag.Quality() != QualityUncertain {
		t.Fatalf("Quality() = %v", tag.Quality())
	}
	if !tag.IsEnabled() {
		t.Fatal("expected tag enabled by default")
	}
	if tag.IsHealthy() {
		t.Fatal("unknown status should not be healthy")
	}
}

func TestTagUpdateValue(t *testing.T) {
	tag := newTestTag(t)
	tag.UpdateValue(25.5, QualityGood)

	if tag.Status() != StatusOnline {
		t.Fatalf("Status() = %v", tag.Status())
	}
	if tag.Quality() != QualityGood {
		t.Fatalf("Quality() = %v", tag.Quality())
	}
	if !tag.IsHealthy() {
		t.Fatal("expected healthy after good update")
	}
}

func TestTagMarkOffline(t *testing.T) {
	tag := newTestTag(t)
	tag.MarkOffline()

	if tag.Status() != StatusOffline {
		t.Fatalf("Status() = %v", tag.Status())
	}
	if tag.Quality() != QualityTimeout {
		t.Fatalf("Quality() = %v", tag.Quality())
	}
	if tag.IsHealthy() {
		t.Fatal("offline tag should not be healthy")
	}
}

func TestTagMarkError(t *testing.T) {
	tag := newTestTag(t)
	tag.MarkError("serial port disconnected")

	if tag.Status() != StatusError {
		t.Fatalf("Status() = %v", tag.Status())
	}
	if tag.Quality() != QualityBad {
		t.Fatalf("Quality() = %v", tag.Quality())
	}
	if tag.ErrorMessage() != "serial port disconnected" {
		t.Fatalf("ErrorMessage() = %q", tag.ErrorMessage())
	}
	if tag.IsHealthy() {
		t.Fatal("errored tag should not be healthy")
	}
}

func TestTagEnableDisable(t *testing.T) {
	tag := newTestTag(t)
	if !tag.IsEnabled() {
		t.Fatal("expected enabled by default")
	}

	tag.Disable()
	if tag.IsEnabled() {
		t.Fatal("expected disabled")
	}
	if tag.IsHealthy() {
		t.Fatal("disabled tag should not be healthy")
	}

	tag.Enable()
	if !tag.IsEnabled() {
		t.Fatal("expected enabled after Enable()")
	}
}

func TestTagIsTimedOutOnChangeNeverTimesOut(t *testing.T) {
	tag := newTestTag(t)
	if tag.IsTimedOut() {
		t.Fatal("OnChange tag should never report timed out")
	}
}

func TestTagIsTimedOutPollingWithoutUpdate(t *testing.T) {
	id, _ := NewTagID("POLL_TAG")
	tag := NewTag(id, "device-1", nil, NewPollingMode(1000), ValueTypeSimple, PipelineConfig{})
	if !tag.IsTimedOut() {
		t.Fatal("polling tag with no update yet should be timed out")
	}
}

func TestTagIsTimedOutPollingAfterUpdate(t *testing.T) {
	id, _ := NewTagID("POLL_TAG")
	tag := NewTag(id, "device-1", nil, NewPollingMode(1000), ValueTypeSimple, PipelineConfig{})
	tag.UpdateValue(1.0, QualityGood)
	if tag.IsTimedOut() {
		t.Fatal("freshly updated polling tag should not be timed out")
	}
}

func TestGetPrimaryValueSimple(t *testing.T) {
	tag := newTestTag(t)
	tag.UpdateValue(42.5, QualityGood)
	if got := tag.GetPrimaryValue(); got != 42.5 {
		t.Fatalf("GetPrimaryValue() = %v", got)
	}
}

func TestGetPrimaryValueComposite(t *testing.T) {
	id, _ := NewTagID("COMPOSITE_TAG")
	tag := NewTag(id, "device-1", nil, NewOnChangeMode(100, 5000), ValueTypeComposite, PipelineConfig{})
	tag.SetValueSchema(map[string]any{"primary": "weight"})
	tag.UpdateValue(map[string]any{"weight": 12.3, "tare": 1.0}, QualityGood)

	if got := tag.GetPrimaryValue(); got != 12.3 {
		t.Fatalf("GetPrimaryValue() = %v", got)
	}
}

func TestGetDisplayStringSimple(t *testing.T) {
	id, _ := NewTagID("UNIT_TAG")
	tag := NewTag(id, "device-1", nil, NewOnChangeMode(100, 5000), ValueTypeSimple, PipelineConfig{})
	tag.SetValueSchema(map[string]any{"unit": "kg"})
	tag.UpdateValue(12.34, QualityGood)

	if got := tag.GetDisplayString(); got != "12.34 kg" {
		t.Fatalf("GetDisplayString() = %q", got)
	}
}

func TestGetDisplayStringUnsetValue(t *testing.T) {
	tag := newTestTag(t)
	if got := tag.GetDisplayString(); got != "---" {
		t.Fatalf("GetDisplayString() = %q", got)
	}
}
