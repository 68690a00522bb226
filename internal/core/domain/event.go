package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType names the concrete shape held by a DomainEvent.
type EventType string

const (
	EventTagConnected     EventType = "TagConnected"
	EventTagDisconnected  EventType = "TagDisconnected"
	EventTagValueUpdated  EventType = "TagValueUpdated"
	EventAgentHeartbeat   EventType = "AgentHeartbeat"
	EventTagExecutorError EventType = "TagExecutorError"
	EventReportCompleted  EventType = "ReportCompleted"
)

// ReportItem is a single reading inside a completed batch report.
type ReportItem struct {
	Value     any            `json:"value"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// DomainEvent is the single event type flowing through the composite event
// bus: acquisition pipeline output, connection lifecycle transitions,
// completed batches, heartbeats, and driver failures all arrive as one of
// these. Only the fields relevant to Type are populated.
type DomainEvent struct {
	Type EventType `json:"type"`

	TagID     TagID     `json:"tag_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// TagDisconnected / TagExecutorError
	Reason string `json:"reason,omitempty"`

	// TagValueUpdated
	Value   any        `json:"value,omitempty"`
	Quality TagQuality `json:"quality,omitempty"`

	// AgentHeartbeat
	AgentID       string   `json:"agent_id,omitempty"`
	ConfigVersion string   `json:"config_version,omitempty"`
	UptimeSecs    uint64   `json:"uptime_secs,omitempty"`
	ActiveTags    int      `json:"active_tags,omitempty"`
	ActiveTagIDs  []string `json:"active_tag_ids,omitempty"`

	// ReportCompleted
	ReportID string       `json:"report_id,omitempty"`
	Items    []ReportItem `json:"items,omitempty"`
}

// NewTagConnectedEvent builds a TagConnected event.
func NewTagConnectedEvent(tagID TagID) DomainEvent {
	return DomainEvent{Type: EventTagConnected, TagID: tagID, Timestamp: time.Now().UTC()}
}

// NewTagDisconnectedEvent builds a TagDisconnected event.
func NewTagDisconnectedEvent(tagID TagID, reason string) DomainEvent {
	return DomainEvent{Type: EventTagDisconnected, TagID: tagID, Reason: reason, Timestamp: time.Now().UTC()}
}

// NewTagValueUpdatedEvent builds a TagValueUpdated event.
func NewTagValueUpdatedEvent(tagID TagID, value any, quality TagQuality) DomainEvent {
	return DomainEvent{Type: EventTagValueUpdated, TagID: tagID, Value: value, Quality: quality, Timestamp: time.Now().UTC()}
}

// NewAgentHeartbeatEvent builds an AgentHeartbeat event.
func NewAgentHeartbeatEvent(agentID, configVersion string, uptimeSecs uint64, activeTagIDs []string) DomainEvent {
	return DomainEvent{
		Type:          EventAgentHeartbeat,
		AgentID:       agentID,
		ConfigVersion: configVersion,
		UptimeSecs:    uptimeSecs,
		ActiveTags:    len(activeTagIDs),
		ActiveTagIDs:  activeTagIDs,
		Timestamp:     time.Now().UTC(),
	}
}

// NewTagExecutorErrorEvent builds a TagExecutorError event.
func NewTagExecutorErrorEvent(tagID TagID, reason string) DomainEvent {
	return DomainEvent{Type: EventTagExecutorError, TagID: tagID, Reason: reason, Timestamp: time.Now().UTC()}
}

// NewReportCompletedEvent builds a ReportCompleted event, generating a
// unique report ID if reportID is empty.
func NewReportCompletedEvent(reportID, agentID string, items []ReportItem) DomainEvent {
	if reportID == "" {
		reportID = uuid.NewString()
	}
	return DomainEvent{
		Type:      EventReportCompleted,
		ReportID:  reportID,
		AgentID:   agentID,
		Items:     items,
		Timestamp: time.Now().UTC(),
	}
}
