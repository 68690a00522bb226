// Package command listens on scada/cmd/{agent_id} for operator-issued
// commands and routes them to the automation engine's ActionExecutor.
// Ported from application/src/messaging/command_listener.rs's
// CommandListener.
package command

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ifa-automation/scada-edge-agent/internal/core/domain"
	"github.com/ifa-automation/scada-edge-agent/pkg/logger"
)

// Message is an incoming broker publish delivered to a Subscriber
// handler. Duplicated locally rather than importing internal/broker,
// matching the seam pattern used by internal/config and internal/forward.
type Message struct {
	Topic   string
	Payload []byte
}

// Subscriber is the narrow broker surface Listener needs: register a
// handler for its command topic. Satisfied by *broker.Client.
type Subscriber interface {
	Subscribe(topic string, handler func(Message)) error
}

// ActionExecutor is the narrow automation surface Listener drives for a
// manual batch command. Satisfied by *automation.PrintingActionExecutor
// (and any other automation.ActionExecutor implementation).
type ActionExecutor interface {
	ExecuteManualBatch(ctx context.Context, sessionID string, items []domain.ReportItem)
}

// printBatchManualCommand is the wire shape of a
// {"type":"PrintBatchManual", ...} command payload.
type printBatchManualCommand struct {
	Type  string              `json:"type"`
	TagID string              `json:"tag_id"`
	Items []domain.ReportItem `json:"items"`
}

// Listener subscribes to scada/cmd/{agent_id} and dispatches recognized
// command types to an ActionExecutor. Unrecognized or malformed commands
// are logged and ignored; the listener never returns an error to the
// broker for a bad command, matching the original's warn-and-continue
// behavior.
type Listener struct {
	agentID  string
	executor ActionExecutor
	logger   *slog.Logger
}

// NewListener constructs a Listener.
func NewListener(agentID string, executor ActionExecutor, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{agentID: agentID, executor: executor, logger: logger}
}

// Topic returns the broker topic this listener subscribes to.
func (l *Listener) Topic() string {
	return fmt.Sprintf("scada/cmd/%s", l.agentID)
}

// Start registers this listener's handler with sub.
func (l *Listener) Start(sub Subscriber) error {
	topic := l.Topic()
	l.logger.Info("command listener listening", "topic", topic)
	return sub.Subscribe(topic, l.handleMessage)
}

func (l *Listener) handleMessage(msg Message) {
	requestID := logger.GenerateRequestID()
	log := l.logger.With("request_id", requestID)

	log.Info("received command", "payload", string(msg.Payload))

	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		log.Warn("received non-JSON command", "error", err)
		return
	}

	switch envelope.Type {
	case "PrintBatchManual":
		l.handlePrintBatchManual(log, msg.Payload)
	default:
		log.Warn("unhandled command type", "command_type", envelope.Type)
	}
}

func (l *Listener) handlePrintBatchManual(log *slog.Logger, payload []byte) {
	var cmd printBatchManualCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		log.Warn("invalid PrintBatchManual command payload", "error", err)
		return
	}
	if cmd.TagID == "" {
		log.Warn("invalid PrintBatchManual command payload: missing tag_id")
		return
	}

	log.Info("executing manual batch print", "tag_id", cmd.TagID, "count", len(cmd.Items))
	l.executor.ExecuteManualBatch(context.Background(), cmd.TagID, cmd.Items)
}
