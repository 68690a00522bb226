package automation

import (
	"context"
	"sync"
	"testing"

	"github.com/ifa-automation/scada-edge-agent/internal/core/domain"
)

type recordingExecutor struct {
	mu      sync.Mutex
	actions []domain.ActionConfig
}

func (e *recordingExecutor) Execute(ctx context.Context, action domain.ActionConfig, tagID domain.TagID, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.actions = append(e.actions, action)
}

func (e *recordingExecutor) ExecuteManualBatch(ctx context.Context, sessionID string, items []domain.ReportItem) {}

func (e *recordingExecutor) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.actions)
}

func testTagID(t *testing.T, id string) domain.TagID {
	t.Helper()
	tagID, err := domain.NewTagID(id)
	if err != nil {
		t.Fatalf("NewTagID() error = %v", err)
	}
	return tagID
}

func newAutomationTestTag(t *testing.T, id string, valueType domain.TagValueType, automations ...domain.AutomationConfig) tagAutomationSource {
	t.Helper()
	return tagAutomationSource{
		ID:          testTagID(t, id),
		Automations: automations,
		ValueType:   valueType,
		ValueSchema: map[string]any{"primary": "pressure"},
	}
}

func consecutiveAutomation(count int, op domain.Operator, target float64) domain.AutomationConfig {
	return domain.AutomationConfig{
		Name: "test-automation",
		Trigger: domain.TriggerConfig{
			Type:        domain.TriggerConsecutiveValues,
			TargetValue: target,
			Count:       count,
			Op:          op,
		},
		Action: domain.ActionConfig{Type: domain.ActionPublishMqtt, Topic: "scada/alerts"},
	}
}

func TestEngineFiresAfterConsecutiveMatches(t *testing.T) {
	tag := newAutomationTestTag(t, "TAG_A", domain.ValueTypeSimple, consecutiveAutomation(3, domain.OperatorGreaterOrEqual, 100))
	exec := &recordingExecutor{}
	engine := NewEngine([]tagAutomationSource{tag}, exec, nil)

	for i := 0; i < 2; i++ {
		engine.HandleEvent(context.Background(), domain.NewTagValueUpdatedEvent(tag.ID, 150.0, domain.QualityGood))
	}
	if exec.count() != 0 {
		t.Fatalf("expected no action before threshold, got %d", exec.count())
	}

	engine.HandleEvent(context.Background(), domain.NewTagValueUpdatedEvent(tag.ID, 150.0, domain.QualityGood))
	if exec.count() != 1 {
		t.Fatalf("expected action to fire once threshold reached, got %d", exec.count())
	}
}

func TestEngineResetsCounterOnNonMatch(t *testing.T) {
	tag := newAutomationTestTag(t, "TAG_B", domain.ValueTypeSimple, consecutiveAutomation(2, domain.OperatorGreaterOrEqual, 100))
	exec := &recordingExecutor{}
	engine := NewEngine([]tagAutomationSource{tag}, exec, nil)

	engine.HandleEvent(context.Background(), domain.NewTagValueUpdatedEvent(tag.ID, 150.0, domain.QualityGood))
	engine.HandleEvent(context.Background(), domain.NewTagValueUpdatedEvent(tag.ID, 10.0, domain.QualityGood))
	engine.HandleEvent(context.Background(), domain.NewTagValueUpdatedEvent(tag.ID, 150.0, domain.QualityGood))

	if exec.count() != 0 {
		t.Fatalf("expected counter reset by non-matching read, got %d actions", exec.count())
	}
}

func TestEngineFiresAgainAfterReset(t *testing.T) {
	tag := newAutomationTestTag(t, "TAG_C", domain.ValueTypeSimple, consecutiveAutomation(1, domain.OperatorGreaterOrEqual, 100))
	exec := &recordingExecutor{}
	engine := NewEngine([]tagAutomationSource{tag}, exec, nil)

	engine.HandleEvent(context.Background(), domain.NewTagValueUpdatedEvent(tag.ID, 150.0, domain.QualityGood))
	engine.HandleEvent(context.Background(), domain.NewTagValueUpdatedEvent(tag.ID, 150.0, domain.QualityGood))

	if exec.count() != 2 {
		t.Fatalf("expected action to fire each time the threshold is crossed, got %d", exec.count())
	}
}

func TestEngineIgnoresUnboundTag(t *testing.T) {
	exec := &recordingExecutor{}
	engine := NewEngine(nil, exec, nil)

	unknown := testTagID(t, "UNKNOWN")
	engine.HandleEvent(context.Background(), domain.NewTagValueUpdatedEvent(unknown, 1.0, domain.QualityGood))

	if exec.count() != 0 {
		t.Fatalf("expected no action for a tag with no automations, got %d", exec.count())
	}
}

func TestEngineExtractsCompositePrimaryValue(t *testing.T) {
	tag := newAutomationTestTag(t, "TAG_D", domain.ValueTypeComposite, consecutiveAutomation(1, domain.OperatorGreaterOrEqual, 50))
	exec := &recordingExecutor{}
	engine := NewEngine([]tagAutomationSource{tag}, exec, nil)

	payload := map[string]any{"pressure": 75.0, "temperature": 1.0}
	engine.HandleEvent(context.Background(), domain.NewTagValueUpdatedEvent(tag.ID, payload, domain.QualityGood))

	if exec.count() != 1 {
		t.Fatalf("expected composite primary-value extraction to trigger the action, got %d", exec.count())
	}
}

func TestEnginePublishIgnoresNonValueEvents(t *testing.T) {
	tag := newAutomationTestTag(t, "TAG_E", domain.ValueTypeSimple, consecutiveAutomation(1, domain.OperatorGreaterOrEqual, 1))
	exec := &recordingExecutor{}
	engine := NewEngine([]tagAutomationSource{tag}, exec, nil)

	if err := engine.Publish(context.Background(), domain.NewAgentHeartbeatEvent("agent-1", "v1", 0, nil)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if exec.count() != 0 {
		t.Fatalf("expected heartbeat event to be ignored, got %d actions", exec.count())
	}
}

func TestEngineReloadResetsTriggerState(t *testing.T) {
	tag := newAutomationTestTag(t, "TAG_F", domain.ValueTypeSimple, consecutiveAutomation(2, domain.OperatorGreaterOrEqual, 100))
	exec := &recordingExecutor{}
	engine := NewEngine([]tagAutomationSource{tag}, exec, nil)

	engine.HandleEvent(context.Background(), domain.NewTagValueUpdatedEvent(tag.ID, 150.0, domain.QualityGood))
	engine.Reload([]tagAutomationSource{tag})
	engine.HandleEvent(context.Background(), domain.NewTagValueUpdatedEvent(tag.ID, 150.0, domain.QualityGood))

	if exec.count() != 0 {
		t.Fatalf("expected Reload to reset consecutive-match counters, got %d actions", exec.count())
	}
}
