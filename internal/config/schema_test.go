package config

import (
	"testing"

	"github.com/ifa-automation/scada-edge-agent/internal/core/domain"
)

func TestTagConfigToDomainTagDefaults(t *testing.T) {
	tc := TagConfig{ID: "TAG_A", Driver: domain.DriverSimulator}

	tag, err := tc.ToDomainTag()
	if err != nil {
		t.Fatalf("ToDomainTag() error = %v", err)
	}
	if tag.ValueType() != domain.ValueTypeSimple {
		t.Fatalf("ValueType() = %v, want Simple default", tag.ValueType())
	}
	if !tag.UpdateMode().IsPolling() {
		t.Fatal("expected a default polling update mode")
	}
	if !tag.IsEnabled() {
		t.Fatal("expected a tag with no explicit Enabled field to default enabled")
	}
}

func TestTagConfigToDomainTagRespectsDisabled(t *testing.T) {
	disabled := false
	tc := TagConfig{ID: "TAG_B", Driver: domain.DriverSimulator, Enabled: &disabled}

	tag, err := tc.ToDomainTag()
	if err != nil {
		t.Fatalf("ToDomainTag() error = %v", err)
	}
	if tag.IsEnabled() {
		t.Fatal("expected Enabled=false to disable the tag")
	}
}

func TestTagConfigToDomainTagRejectsInvalidID(t *testing.T) {
	tc := TagConfig{ID: "", Driver: domain.DriverSimulator}

	if _, err := tc.ToDomainTag(); err == nil {
		t.Fatal("expected an empty tag id to fail")
	}
}

func TestAgentConfigEffectivePrinterFallsBackToDefault(t *testing.T) {
	cfg := AgentConfig{}
	printer := cfg.EffectivePrinter()
	if printer != DefaultPrinterConfig() {
		t.Fatalf("EffectivePrinter() = %+v, want default", printer)
	}
}

func TestAgentConfigToDomainDevices(t *testing.T) {
	cfg := AgentConfig{Devices: []DeviceConfig{
		{ID: "dev-1", DriverKind: domain.DriverModbus, Enabled: true},
	}}

	devices := cfg.ToDomainDevices()
	if len(devices) != 1 || devices[0].ID != "dev-1" {
		t.Fatalf("ToDomainDevices() = %+v", devices)
	}
}
